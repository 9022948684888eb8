package device

import (
	"bytes"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WaypointUpdater/internal/model"
)

// pipePort is a ReadWriteCloser whose reads come from a pipe and whose writes
// are captured.
type pipePort struct {
	*io.PipeReader
	mu  sync.Mutex
	out bytes.Buffer
}

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipePort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

func newPipe() (*pipePort, *io.PipeWriter) {
	r, w := io.Pipe()
	return &pipePort{PipeReader: r}, w
}

func TestLineDevice(t *testing.T) {
	port, w := newPipe()
	dev := NewLineDevice(port)
	defer dev.Close()

	go func() {
		_, _ = w.Write([]byte("first\nsecond\n"))
	}()

	line, err := dev.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first\n", line)

	line, err = dev.ReadLine(0)
	require.NoError(t, err)
	assert.Equal(t, "second\n", line)

	_, err = dev.ReadLine(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	// A line arriving after a timeout is still delivered.
	go func() {
		_, _ = w.Write([]byte("late\n"))
	}()
	line, err = dev.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late\n", line)

	require.NoError(t, dev.WriteLine("hello"))
	assert.Equal(t, "hello\n", port.written())

	require.NoError(t, dev.Close())
	assert.NoError(t, dev.Close())
	assert.Error(t, dev.WriteLine("after close"))
}

func TestLineDeviceEOF(t *testing.T) {
	port, w := newPipe()
	dev := NewLineDevice(port)
	defer dev.Close()

	require.NoError(t, w.Close())
	_, err := dev.ReadLine(time.Second)
	assert.ErrorIs(t, err, io.EOF)
	_, err = dev.ReadLine(time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOriginProjection(t *testing.T) {
	o := Origin{Lat: 37.0, Lon: -122.0}

	x, y := o.Project(37.0, -122.0)
	assert.Zero(t, x)
	assert.Zero(t, y)

	_, y = o.Project(38.0, -122.0)
	assert.InDelta(t, 111195, y, 5)

	x, _ = o.Project(37.0, -121.0)
	assert.InDelta(t, 111195*math.Cos(37*math.Pi/180), x, 5)

	lat, lon := o.Unproject(o.Project(37.01, -121.98))
	assert.InDelta(t, 37.01, lat, 1e-9)
	assert.InDelta(t, -121.98, lon, 1e-9)
}

func TestGpsDeviceRead(t *testing.T) {
	port, w := newPipe()
	origin := Origin{Lat: 48.1, Lon: 11.5}
	gps := NewGpsDevice("test", NewLineDevice(port), origin)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	go func() {
		_, _ = w.Write([]byte("$GPGSV,3,1,11\n"))
		_, _ = w.Write([]byte("$GPRMC,123519,V,,,,,,,230394,,*6A\n"))
		_, _ = w.Write([]byte(RMCSentence(48.101, 11.5, now) + "\r\n"))
	}()

	out := make(chan model.Pose, 4)
	stop, err := gps.Read(out)
	require.NoError(t, err)

	select {
	case pose := <-out:
		assert.InDelta(t, 0, pose.X, 0.01)
		assert.InDelta(t, 111.2, pose.Y, 0.5)
		assert.False(t, pose.Stamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no pose decoded")
	}

	stop()
	for range out {
	}
}

func TestRMCSentence(t *testing.T) {
	s := RMCSentence(-33.5, 151.25, time.Date(2024, 3, 1, 1, 2, 3, 0, time.UTC))
	assert.Contains(t, s, "$GPRMC,010203.00,A,3330.0000,S,15115.0000,E")
	assert.Contains(t, s, ",010324,")
}
