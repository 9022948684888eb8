// Package ahead decides which waypoint lies immediately ahead of the vehicle.
//
// The nearest waypoint alone cannot tell ahead from behind: on a curve or just
// past a waypoint the closest one may already be behind the vehicle. The
// resolver projects the vehicle position onto the local path direction at the
// nearest waypoint and steps forward one index when the vehicle has passed it.
package ahead

import (
	"errors"
	"fmt"

	"WaypointUpdater/internal/model"
)

var (
	// ErrDegeneratePath is returned for paths too short to define a direction.
	ErrDegeneratePath = errors.New("path needs at least 2 waypoints")
	// ErrIndexOutOfRange is returned when the nearest index does not address the path.
	ErrIndexOutOfRange = errors.New("nearest index out of range")
)

// Resolve returns the index of the first waypoint ahead of (x, y), given the
// index of the nearest waypoint. Index arithmetic wraps around the path.
//
// Constraints are accepted for traffic and obstacle inputs; they do not yet
// influence the result.
func Resolve(x, y float64, nearest int, wps []model.Waypoint, _ model.Constraints) (int, error) {
	n := len(wps)
	if n < 2 {
		return -1, ErrDegeneratePath
	}
	if nearest < 0 || nearest >= n {
		return -1, fmt.Errorf("resolve %d of %d: %w", nearest, n, ErrIndexOutOfRange)
	}

	cur := wps[nearest]
	prev := wps[(nearest-1+n)%n]

	// tangent = cur - prev, offset = pos - cur
	tx, ty := cur.X-prev.X, cur.Y-prev.Y
	ox, oy := x-cur.X, y-cur.Y
	if tx*ox+ty*oy > 0 {
		return (nearest + 1) % n, nil
	}
	return nearest, nil
}
