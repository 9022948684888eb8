// Package device defines a unified interface for line-oriented devices such as
// serial ports, and the readers built on top of it.
package device

import (
	"errors"
	"time"
)

// ErrTimeout is returned by ReadLine when no line arrived in time.
var ErrTimeout = errors.New("read timeout")

// Device defines an abstract interface for line devices (e.g. serial ports).
type Device interface {
	// ReadLine reads a single line terminated by '\n'.
	// If timeout > 0, it must return after timeout even if no data available.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Close closes the device and releases underlying resources.
	Close() error
}
