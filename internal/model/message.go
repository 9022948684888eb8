// Package model defines shared message structures for the waypoint updater.
package model

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// ErrNonFinite is returned for coordinates or speeds that are NaN or infinite.
var ErrNonFinite = errors.New("non-finite value")

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Waypoint is a single point of the reference path with its target speed.
// Payload holds the original record as received and is never modified.
type Waypoint struct {
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Z       float64         `json:"z"`
	Speed   float64         `json:"speed"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Finite reports whether the position and speed are all finite numbers.
func (w Waypoint) Finite() bool { return finite(w.X, w.Y, w.Z, w.Speed) }

// Pose is the latest observed vehicle position.
type Pose struct {
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Z     float64   `json:"z"`
	Stamp time.Time `json:"stamp"`
}

// Finite reports whether the position is made of finite numbers.
func (p Pose) Finite() bool { return finite(p.X, p.Y, p.Z) }

// Window is the lookahead slice of the path published each tick.
type Window struct {
	RouteID   string     `json:"route_id"`
	Start     int        `json:"start"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Constraints carries the traffic and obstacle inputs known at tick time.
// An index of -1 means no constraint is set.
type Constraints struct {
	TrafficWaypoint  int `json:"traffic_waypoint"`
	ObstacleWaypoint int `json:"obstacle_waypoint"`
}

// NoConstraints returns a Constraints value with nothing set.
func NoConstraints() Constraints {
	return Constraints{TrafficWaypoint: -1, ObstacleWaypoint: -1}
}

// Empty reports whether no constraint is set.
func (c Constraints) Empty() bool {
	return c.TrafficWaypoint < 0 && c.ObstacleWaypoint < 0
}

// WaypointRef is the body of the traffic and obstacle endpoints.
type WaypointRef struct {
	Waypoint int `json:"waypoint"`
}
