// Package device implements a GPS pose source using the NMEA protocol.
// Fixes are projected onto a local planar frame around a configured origin so
// that they share units with the loaded path.
package device

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
)

const earthRadius = 6371008.8 // metres

// Origin is the geodetic reference point of the local frame.
type Origin struct {
	Lat, Lon float64
}

// Project maps a geodetic fix to east/north metres from the origin using an
// equirectangular approximation. Accurate to well under a metre over a few km.
func (o Origin) Project(lat, lon float64) (x, y float64) {
	rad := math.Pi / 180
	x = (lon - o.Lon) * rad * earthRadius * math.Cos(o.Lat*rad)
	y = (lat - o.Lat) * rad * earthRadius
	return x, y
}

// Unproject is the inverse of Project.
func (o Origin) Unproject(x, y float64) (lat, lon float64) {
	rad := math.Pi / 180
	lat = o.Lat + y/(earthRadius*rad)
	lon = o.Lon + x/(earthRadius*rad*math.Cos(o.Lat*rad))
	return lat, lon
}

// GpsDevice reads NMEA sentences from a line Device and emits projected poses.
type GpsDevice struct {
	ID     string
	Origin Origin
	Line   Device

	dev  string
	baud int
}

// NewSerialGpsDevice creates a GPS device on a serial port. The port is opened by Read.
func NewSerialGpsDevice(dev string, baud int, origin Origin) *GpsDevice {
	return &GpsDevice{ID: dev, Origin: origin, dev: dev, baud: baud}
}

// NewGpsDevice wraps an already open line device.
func NewGpsDevice(id string, line Device, origin Origin) *GpsDevice {
	return &GpsDevice{ID: id, Origin: origin, Line: line}
}

// Open opens the serial port if the device was created from a path.
func (g *GpsDevice) Open() error {
	if g.Line != nil {
		return nil
	}
	if g.dev == "" {
		return errors.New("gps device path not set")
	}
	sd, err := NewSerialDevice(g.dev, g.baud)
	if err != nil {
		return fmt.Errorf("open gps serial failed: %w", err)
	}
	g.Line = sd
	return nil
}

// Close closes the underlying line device.
func (g *GpsDevice) Close() error {
	if g.Line == nil {
		return nil
	}
	err := g.Line.Close()
	g.Line = nil
	return err
}

// Read continuously decodes fixes and pushes poses to out until the returned
// stop function is called. The reader owns the line device from then on and
// closes it, together with out, when it exits.
func (g *GpsDevice) Read(out chan<- model.Pose) (func(), error) {
	if err := g.Open(); err != nil {
		return nil, err
	}
	line := g.Line

	stop := make(chan struct{})
	go func() {
		defer func() {
			if err := line.Close(); err != nil {
				log.Printf("[gps %s] close: %v", g.ID, err)
			}
			close(out)
		}()
		for {
			select {
			case <-stop:
				return
			default:
			}

			s, err := line.ReadLine(500 * time.Millisecond)
			if err != nil {
				select {
				case <-stop:
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			s = strings.TrimSpace(s)
			if !strings.HasPrefix(s, "$") {
				continue
			}
			lat, lon, err := parser.ParseNMEA(s)
			if err != nil {
				if !errors.Is(err, parser.ErrNoFix) {
					log.Printf("[gps %s] skip sentence: %v", g.ID, err)
				}
				continue
			}
			x, y := g.Origin.Project(lat, lon)
			select {
			case out <- model.Pose{X: x, Y: y, Stamp: time.Now()}:
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }, nil
}

// RMCSentence formats a valid $GPRMC fix with checksum, for simulators.
func RMCSentence(lat, lon float64, t time.Time) string {
	latStr, latDir := parser.ToNMEACoord(lat, true)
	lonStr, lonDir := parser.ToNMEACoord(lon, false)
	body := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,0.0,0.0,%s,,,A",
		t.UTC().Format("150405.00"), latStr, latDir, lonStr, lonDir, t.UTC().Format("020106"))
	return "$" + body + "*" + parser.Checksum(body)
}
