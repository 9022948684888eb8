// Controller stub: reads published windows from the updater's output serial
// line, decodes them and logs what a downstream controller would follow.
// Optionally it posts a traffic waypoint back to the hub so the constraint
// inputs can be exercised end to end.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"WaypointUpdater/internal/device"
	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
	"WaypointUpdater/internal/path"
	"WaypointUpdater/internal/util"
)

func main() {
	util.SetupLogger()

	dev := flag.String("dev", "/tmp/ttySimWindow", "serial device the updater writes windows to")
	baud := flag.Int("baud", 9600, "baud rate")
	format := flag.String("format", "csv", "window wire format (csv/json)")
	hub := flag.String("hub", "", "hub base URL for traffic reports, e.g. http://localhost:10000")
	stopAhead := flag.Int("stop-ahead", -1, "report a red light this many waypoints past each window start")
	flag.Parse()

	p, err := parser.ForFormat(*format)
	if err != nil {
		log.Fatal(err)
	}
	port, err := device.NewSerialDevice(*dev, *baud)
	if err != nil {
		log.Fatalf("open serial: %v", err)
	}
	defer func() {
		if cerr := port.Close(); cerr != nil {
			log.Printf("warning: close serial err: %v", cerr)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Printf("controller listening on %s (%s)", *dev, *format)
	go func() {
		for {
			line, err := port.ReadLine(0)
			if errors.Is(err, io.EOF) {
				log.Println("window line closed")
				stop <- syscall.SIGTERM
				return
			}
			if err != nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			w, err := p.DecodeWindow(line)
			if err != nil {
				log.Printf("bad window: %v", err)
				continue
			}
			logWindow(w)
			if *hub != "" && *stopAhead >= 0 {
				reportTraffic(*hub, w.Start+*stopAhead)
			}
		}
	}()

	<-stop
	log.Println("controller stopping")
}

func logWindow(w model.Window) {
	if len(w.Waypoints) == 0 {
		log.Printf("route %s: empty window at %d", w.RouteID, w.Start)
		return
	}
	first, last := w.Waypoints[0], w.Waypoints[len(w.Waypoints)-1]
	log.Printf("route %s: follow %d..%d (%.2f,%.2f)->(%.2f,%.2f) target %.2f m/s",
		w.RouteID, w.Start, w.Start+len(w.Waypoints)-1, first.X, first.Y, last.X, last.Y, path.Speed(first))
}

func reportTraffic(base string, wp int) {
	body, _ := json.Marshal(model.WaypointRef{Waypoint: wp})
	resp, err := http.Post(strings.TrimSuffix(base, "/")+"/api/traffic", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("traffic report err: %v", err)
		return
	}
	_ = resp.Body.Close()
}
