package core

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WaypointUpdater/internal/device"
	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
)

// loopPort feeds reads from a pipe and records writes.
type loopPort struct {
	*io.PipeReader
	mu     sync.Mutex
	writes []string
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(b))
	return len(b), nil
}

func (p *loopPort) lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

type poseLog struct {
	mu    sync.Mutex
	poses []model.Pose
}

func (l *poseLog) UpdatePose(p model.Pose) {
	l.mu.Lock()
	l.poses = append(l.poses, p)
	l.mu.Unlock()
}

func (l *poseLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.poses)
}

func TestPoseReader(t *testing.T) {
	r, w := io.Pipe()
	dev := device.NewLineDevice(&loopPort{PipeReader: r})
	recv := &poseLog{}
	pr := NewPoseReader("test", dev, parser.NewCSVParser(), recv)
	require.NoError(t, pr.Start())

	go func() {
		_, _ = w.Write([]byte("# header\n\n1.5,2.5\nbad,line\n3,4,5,100\n"))
	}()
	require.Eventually(t, func() bool { return recv.len() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, pr.Stop())
	require.NoError(t, pr.Stop())

	recv.mu.Lock()
	defer recv.mu.Unlock()
	assert.Equal(t, 1.5, recv.poses[0].X)
	assert.Equal(t, 2.5, recv.poses[0].Y)
	assert.Equal(t, 5.0, recv.poses[1].Z)
	assert.Equal(t, time.Unix(100, 0).UTC(), recv.poses[1].Stamp)
}

func TestPoseReaderEOF(t *testing.T) {
	r, w := io.Pipe()
	dev := device.NewLineDevice(&loopPort{PipeReader: r})
	recv := &poseLog{}
	pr := NewPoseReader("eof", dev, parser.NewJSONParser(), recv)
	require.NoError(t, pr.Start())

	_, err := w.Write([]byte(`{"x":1,"y":2}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Eventually(t, func() bool { return recv.len() == 1 }, 2*time.Second, 5*time.Millisecond)
	done := make(chan struct{})
	go func() {
		pr.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not exit on EOF")
	}
	_ = pr.Stop()
}

func TestPoseReaderNilDevice(t *testing.T) {
	pr := NewPoseReader("none", nil, parser.NewCSVParser(), &poseLog{})
	require.NoError(t, pr.Start())
	require.NoError(t, pr.Stop())
}

func TestForwardPoses(t *testing.T) {
	ch := make(chan model.Pose, 3)
	ch <- model.Pose{X: 1}
	ch <- model.Pose{X: 2}
	close(ch)
	recv := &poseLog{}
	ForwardPoses(ch, recv)
	assert.Equal(t, 2, recv.len())
}

func TestLineSink(t *testing.T) {
	r, _ := io.Pipe()
	port := &loopPort{PipeReader: r}
	dev := device.NewLineDevice(port)
	defer dev.Close()

	sink := &LineSink{Device: dev, Parser: parser.NewCSVParser()}
	err := sink.Publish(model.Window{
		RouteID:   "r1",
		Start:     4,
		Waypoints: []model.Waypoint{{X: 4, Speed: 2}, {X: 5, Speed: 2}},
	})
	require.NoError(t, err)
	require.Len(t, port.lines(), 1)
	assert.Equal(t, "r1,4,2,4.000,0.000,0.000,2.000,5.000,0.000,0.000,2.000\n", port.lines()[0])

	err = sink.Publish(model.Window{RouteID: "a,b"})
	assert.Error(t, err)
}
