package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoFix is returned for NMEA sentences that carry no usable position.
var ErrNoFix = errors.New("nmea: no position fix")

// ParseNMEA extracts latitude and longitude from a $GPRMC/$GNRMC or
// $GPGGA/$GNGGA sentence.
func ParseNMEA(line string) (lat, lon float64, err error) {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, '*'); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(line, ",")
	if len(parts) == 0 || len(parts[0]) < 6 {
		return 0, 0, fmt.Errorf("nmea: malformed sentence %q", line)
	}
	var at int
	switch parts[0][3:] {
	case "RMC":
		if len(parts) < 7 || parts[2] != "A" {
			return 0, 0, ErrNoFix
		}
		at = 3
	case "GGA":
		if len(parts) < 7 || parts[6] == "0" || parts[6] == "" {
			return 0, 0, ErrNoFix
		}
		at = 2
	default:
		return 0, 0, fmt.Errorf("nmea: unsupported sentence %s", parts[0])
	}
	if parts[at] == "" || parts[at+2] == "" {
		return 0, 0, ErrNoFix
	}
	lat, err = ParseNMEACoord(parts[at], parts[at+1])
	if err != nil {
		return 0, 0, err
	}
	lon, err = ParseNMEACoord(parts[at+2], parts[at+3])
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// ParseNMEACoord converts NMEA ddmm.mmmm to decimal degrees.
func ParseNMEACoord(value string, dir string) (float64, error) {
	if len(value) < 4 {
		return 0, fmt.Errorf("invalid nmea coord")
	}
	var degPart, minPart string
	// latitude has 2 digit degrees vs lon 3 digits; detect by dir
	if dir == "N" || dir == "S" {
		degPart = value[:2]
		minPart = value[2:]
	} else {
		degPart = value[:3]
		minPart = value[3:]
	}
	deg, err := strconv.ParseFloat(degPart, 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(minPart, 64)
	if err != nil {
		return 0, err
	}
	dec := deg + min/60.0
	if dir == "S" || dir == "W" {
		dec = -dec
	}
	return dec, nil
}

// ToNMEACoord converts decimal degrees to ddmm.mmmm and a hemisphere letter.
func ToNMEACoord(dec float64, isLat bool) (string, string) {
	dir := "N"
	if !isLat {
		dir = "E"
	}
	if dec < 0 {
		dec = -dec
		if isLat {
			dir = "S"
		} else {
			dir = "W"
		}
	}
	deg := int(dec)
	min := (dec - float64(deg)) * 60
	if isLat {
		return fmt.Sprintf("%02d%07.4f", deg, min), dir
	}
	return fmt.Sprintf("%03d%07.4f", deg, min), dir
}

// Checksum returns the XOR checksum of the sentence body between '$' and '*'.
func Checksum(body string) string {
	body = strings.TrimPrefix(body, "$")
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("%02X", sum)
}
