// Package path holds helpers over an ordered sequence of waypoints: arc length
// between two indices and access to the per-point target speed.
package path

import (
	"errors"
	"fmt"
	"math"

	"WaypointUpdater/internal/model"
)

// ErrIndexOutOfRange is returned when an index does not address a waypoint.
var ErrIndexOutOfRange = errors.New("waypoint index out of range")

// Distance sums the 3-D distances between consecutive waypoints walking
// forward from i to j inclusive. It is zero when j <= i.
func Distance(wps []model.Waypoint, i, j int) (float64, error) {
	if i < 0 || i >= len(wps) {
		return 0, fmt.Errorf("distance from %d: %w", i, ErrIndexOutOfRange)
	}
	if j < 0 || j >= len(wps) {
		return 0, fmt.Errorf("distance to %d: %w", j, ErrIndexOutOfRange)
	}
	dist := 0.0
	for k := i + 1; k <= j; k++ {
		dist += segment(wps[k-1], wps[k])
	}
	return dist, nil
}

func segment(a, b model.Waypoint) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Speed returns the target speed of a waypoint.
func Speed(wp model.Waypoint) float64 {
	return wp.Speed
}

// SetSpeed sets the target speed of wps[i] in place.
func SetSpeed(wps []model.Waypoint, i int, v float64) error {
	if i < 0 || i >= len(wps) {
		return fmt.Errorf("set speed at %d: %w", i, ErrIndexOutOfRange)
	}
	wps[i].Speed = v
	return nil
}
