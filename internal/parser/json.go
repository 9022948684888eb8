// Package parser implements the JSONParser which encodes and decodes poses
// and windows in JSON format.
package parser

import (
	"encoding/json"
	"errors"
	"time"

	"WaypointUpdater/internal/model"
)

// JSONParser implements Parser interface using JSON serialization.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// EncodePose encodes a Pose into a JSON string.
func (p *JSONParser) EncodePose(pose model.Pose) (string, error) {
	b, err := json.Marshal(pose)
	return string(b), err
}

// jsonPose mirrors model.Pose with required coordinates.
type jsonPose struct {
	X     *float64  `json:"x"`
	Y     *float64  `json:"y"`
	Z     float64   `json:"z"`
	Stamp time.Time `json:"stamp"`
}

// DecodePose decodes a JSON object into a Pose. Both x and y must be present.
func (p *JSONParser) DecodePose(s string) (model.Pose, error) {
	var jp jsonPose
	if err := json.Unmarshal([]byte(s), &jp); err != nil {
		return model.Pose{}, err
	}
	if jp.X == nil || jp.Y == nil {
		return model.Pose{}, errors.New("pose requires x and y")
	}
	pose := model.Pose{X: *jp.X, Y: *jp.Y, Z: jp.Z, Stamp: jp.Stamp}
	if !pose.Finite() {
		return model.Pose{}, model.ErrNonFinite
	}
	return pose, nil
}

// EncodeWindow encodes a Window into a JSON string.
func (p *JSONParser) EncodeWindow(w model.Window) (string, error) {
	b, err := json.Marshal(w)
	return string(b), err
}

// DecodeWindow decodes a JSON string into a Window.
func (p *JSONParser) DecodeWindow(s string) (model.Window, error) {
	var w model.Window
	err := json.Unmarshal([]byte(s), &w)
	return w, err
}
