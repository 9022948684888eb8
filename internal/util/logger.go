// Package util provides logging setup and helpers for virtual serial ports.
package util

import (
	"fmt"
	"log"
	"os"
	"time"
)

// SetupLogger configures the standard logger used by every component:
// microsecond timestamps on stderr, with the source file when
// WAYPOINT_DEBUG is set.
func SetupLogger() {
	log.SetOutput(os.Stderr)
	flags := log.LstdFlags | log.Lmicroseconds
	if os.Getenv("WAYPOINT_DEBUG") != "" {
		flags |= log.Lshortfile
	}
	log.SetFlags(flags)
}

// Info prints general system information messages with timestamp.
func Info(msg string, args ...any) {
	log.Printf("[INFO] %s | %s", time.Now().Format(time.RFC3339), fmt.Sprintf(msg, args...))
}

// Error prints error messages with timestamp.
func Error(msg string, args ...any) {
	log.Printf("[ERROR] %s | %s", time.Now().Format(time.RFC3339), fmt.Sprintf(msg, args...))
}
