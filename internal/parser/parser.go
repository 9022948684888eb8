// Package parser converts wire lines to structured types and vice-versa.
//
// CSV pose wire format (device -> updater):
//
//	X,Y[,Z[,UNIX_SECONDS]]
//
// CSV window wire format (updater -> controller), one line per window:
//
//	ROUTE_ID,START,COUNT,X,Y,Z,SPEED,X,Y,Z,SPEED,...
package parser

import (
	"fmt"

	"WaypointUpdater/internal/model"
)

// Parser encodes and decodes the line-oriented wire messages.
type Parser interface {
	EncodePose(p model.Pose) (string, error)
	DecodePose(line string) (model.Pose, error)
	EncodeWindow(w model.Window) (string, error)
	DecodeWindow(line string) (model.Window, error)
}

// ForFormat returns the parser registered for a wire format name.
func ForFormat(name string) (Parser, error) {
	switch name {
	case "csv":
		return NewCSVParser(), nil
	case "json", "":
		return NewJSONParser(), nil
	}
	return nil, fmt.Errorf("unknown wire format %q", name)
}
