package core

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"WaypointUpdater/internal/device"
	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
)

// PoseReceiver accepts pose observations.
type PoseReceiver interface {
	UpdatePose(p model.Pose)
}

// PoseReader reads pose lines from a Device, decodes them with a Parser and
// hands them to a PoseReceiver.
type PoseReader struct {
	ID     string
	Device device.Device
	Parser parser.Parser
	recv   PoseReceiver
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewPoseReader constructs a PoseReader. A nil device makes Start a no-op.
func NewPoseReader(id string, dev device.Device, p parser.Parser, recv PoseReceiver) *PoseReader {
	return &PoseReader{
		ID:     id,
		Device: dev,
		Parser: p,
		recv:   recv,
		stop:   make(chan struct{}),
	}
}

// Start begins the read loop in a background goroutine.
func (r *PoseReader) Start() error {
	if r.Device == nil {
		return nil
	}
	r.wg.Add(1)
	go r.loop()
	return nil
}

// loop continuously reads lines from the Device and forwards decoded poses.
func (r *PoseReader) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		default:
		}
		line, err := r.Device.ReadLine(500 * time.Millisecond)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("[reader %s] device closed", r.ID)
				return
			}
			if !errors.Is(err, device.ErrTimeout) {
				// transient error: back off before the next read
				select {
				case <-r.stop:
					return
				case <-time.After(100 * time.Millisecond):
				}
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pose, err := r.Parser.DecodePose(line)
		if err != nil {
			log.Printf("[reader %s] decode err: %v (%s)", r.ID, err, line)
			continue
		}
		r.recv.UpdatePose(pose)
	}
}

// Stop stops the read loop and closes the device if present.
func (r *PoseReader) Stop() error {
	select {
	case <-r.stop:
		return nil
	default:
		close(r.stop)
	}
	var err error
	if r.Device != nil {
		err = r.Device.Close()
	}
	r.wg.Wait()
	return err
}

// ForwardPoses copies poses from ch to recv until ch is closed.
func ForwardPoses(ch <-chan model.Pose, recv PoseReceiver) {
	for p := range ch {
		recv.UpdatePose(p)
	}
}
