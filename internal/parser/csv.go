package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"WaypointUpdater/internal/model"
)

// CSVParser implements Parser using comma-separated values.
// Waypoint payloads are not carried on CSV window lines.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// EncodePose converts a Pose into a CSV line.
func (p *CSVParser) EncodePose(pose model.Pose) (string, error) {
	if pose.Stamp.IsZero() {
		return fmt.Sprintf("%.3f,%.3f,%.3f", pose.X, pose.Y, pose.Z), nil
	}
	secs := float64(pose.Stamp.UnixNano()) / 1e9
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.6f", pose.X, pose.Y, pose.Z, secs), nil
}

// DecodePose parses a CSV pose line. A missing timestamp is left zero.
func (p *CSVParser) DecodePose(line string) (model.Pose, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 2 || len(fields) > 4 {
		return model.Pose{}, fmt.Errorf("expected 2 to 4 fields, got %d", len(fields))
	}
	vals, err := parseFloats(fields)
	if err != nil {
		return model.Pose{}, err
	}
	pose := model.Pose{X: vals[0], Y: vals[1]}
	if len(vals) > 2 {
		pose.Z = vals[2]
	}
	if len(vals) > 3 {
		sec, frac := math.Modf(vals[3])
		pose.Stamp = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return pose, nil
}

// EncodeWindow flattens a Window into one CSV line.
func (p *CSVParser) EncodeWindow(w model.Window) (string, error) {
	if strings.Contains(w.RouteID, ",") {
		return "", errors.New("route id contains a comma")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s,%d,%d", w.RouteID, w.Start, len(w.Waypoints))
	for _, wp := range w.Waypoints {
		fmt.Fprintf(&b, ",%.3f,%.3f,%.3f,%.3f", wp.X, wp.Y, wp.Z, wp.Speed)
	}
	return b.String(), nil
}

// DecodeWindow parses a CSV window line.
func (p *CSVParser) DecodeWindow(line string) (model.Window, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 3 {
		return model.Window{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	start, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.Window{}, errors.New("invalid start")
	}
	count, err := strconv.Atoi(fields[2])
	if err != nil || count < 0 {
		return model.Window{}, errors.New("invalid count")
	}
	if len(fields) != 3+4*count {
		return model.Window{}, fmt.Errorf("expected %d fields for %d waypoints, got %d", 3+4*count, count, len(fields))
	}
	vals, err := parseFloats(fields[3:])
	if err != nil {
		return model.Window{}, err
	}
	w := model.Window{RouteID: fields[0], Start: start, Waypoints: make([]model.Waypoint, count)}
	for i := range w.Waypoints {
		v := vals[4*i:]
		w.Waypoints[i] = model.Waypoint{X: v[0], Y: v[1], Z: v[2], Speed: v[3]}
	}
	return w, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number in field %d: %q", i, f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("field %d: %q: %w", i, f, model.ErrNonFinite)
		}
		out[i] = v
	}
	return out, nil
}
