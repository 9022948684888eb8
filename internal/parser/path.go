package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"WaypointUpdater/internal/model"
)

// FormatFromName guesses a path file format from its extension.
func FormatFromName(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return "json"
	}
	return "csv"
}

// ReadPath reads a full path in the given format. Each waypoint keeps its
// source record as Payload.
func ReadPath(r io.Reader, format string) ([]model.Waypoint, error) {
	switch format {
	case "csv":
		return readPathCSV(r)
	case "json":
		return readPathJSON(r)
	}
	return nil, fmt.Errorf("unknown path format %q", format)
}

// readPathCSV reads X,Y,Z,SPEED lines. Blank lines, '#' comments and a
// non-numeric header line are skipped.
func readPathCSV(r io.Reader) ([]model.Waypoint, error) {
	var wps []model.Waypoint
	sc := bufio.NewScanner(r)
	lineNo, header := 0, false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 fields, got %d", lineNo, len(fields))
		}
		n := min(len(fields), 4)
		vals, err := parseFloats(fields[:n])
		if err != nil {
			if len(wps) == 0 && !header && !errors.Is(err, model.ErrNonFinite) {
				header = true
				continue
			}
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		raw, _ := json.Marshal(line)
		wp := model.Waypoint{X: vals[0], Y: vals[1], Payload: raw}
		if n > 2 {
			wp.Z = vals[2]
		}
		if n > 3 {
			wp.Speed = vals[3]
		}
		wps = append(wps, wp)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return wps, nil
}

func readPathJSON(r io.Reader) ([]model.Waypoint, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}
	wps := make([]model.Waypoint, len(raws))
	for i, raw := range raws {
		if err := json.Unmarshal(raw, &wps[i]); err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		if !wps[i].Finite() {
			return nil, fmt.Errorf("waypoint %d: %w", i, model.ErrNonFinite)
		}
		wps[i].Payload = raw
	}
	return wps, nil
}
