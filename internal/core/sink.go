package core

import (
	"fmt"

	"WaypointUpdater/internal/device"
	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
)

// LineSink writes each window as one encoded line to a Device, typically the
// serial link to the downstream controller.
type LineSink struct {
	Device device.Device
	Parser parser.Parser
}

// Publish encodes w and writes it.
func (s *LineSink) Publish(w model.Window) error {
	line, err := s.Parser.EncodeWindow(w)
	if err != nil {
		return fmt.Errorf("encode window: %w", err)
	}
	if err := s.Device.WriteLine(line); err != nil {
		return fmt.Errorf("write window: %w", err)
	}
	return nil
}
