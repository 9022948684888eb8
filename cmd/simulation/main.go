// Pose simulator: drives a virtual vehicle along a path file and writes its
// pose to a serial device, either as CSV pose lines or as NMEA RMC fixes.
// Use this for local testing when you don't have real vehicle hardware.
package main

import (
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
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

	pathFile := flag.String("path", "configs/path.csv", "path file to drive along")
	dev := flag.String("dev", "/tmp/ttySimPose", "serial device to write poses into")
	baud := flag.Int("baud", 9600, "baud rate")
	speed := flag.Float64("speed", 5, "speed in m/s for waypoints without a target speed")
	rate := flag.Float64("rate", 10, "poses per second")
	lateral := flag.Float64("offset", 0.3, "lateral offset from the path in meters")
	nmea := flag.Bool("nmea", false, "write NMEA RMC sentences instead of CSV poses")
	lat := flag.Float64("origin-lat", 21.0285, "origin latitude for NMEA output")
	lon := flag.Float64("origin-lon", 105.8048, "origin longitude for NMEA output")
	socat := flag.String("socat", "", "create a virtual pair linking -dev to this path")
	flag.Parse()

	f, err := os.Open(*pathFile)
	if err != nil {
		log.Fatalf("open path: %v", err)
	}
	wps, err := parser.ReadPath(f, parser.FormatFromName(*pathFile))
	_ = f.Close()
	if err != nil {
		log.Fatalf("read path: %v", err)
	}
	if len(wps) < 2 {
		log.Fatalf("path %s has %d waypoints, need at least 2", *pathFile, len(wps))
	}

	for i, wp := range wps {
		if path.Speed(wp) == 0 {
			_ = path.SetSpeed(wps, i, *speed)
		}
	}
	total, _ := path.Distance(wps, 0, len(wps)-1)

	if *socat != "" {
		sm := util.NewSocatManager()
		defer sm.Cleanup()
		if err := sm.CreatePair(*dev, *socat, 3*time.Second); err != nil {
			log.Fatalf("socat: %v", err)
		}
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

	origin := device.Origin{Lat: *lat, Lon: *lon}
	csv := parser.NewCSVParser()
	veh := &vehicle{path: wps, offset: *lateral}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	tick := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer tick.Stop()

	log.Printf("simulator driving %d waypoints (%.1f m) into %s", len(wps), total, *dev)
	for {
		select {
		case <-sig:
			return
		case now := <-tick.C:
			p := veh.advance(math.Abs(path.Speed(wps[veh.seg])) / *rate)
			p.Stamp = now
			var line string
			if *nmea {
				la, lo := origin.Unproject(p.X, p.Y)
				line = device.RMCSentence(la, lo, now)
			} else if line, err = csv.EncodePose(p); err != nil {
				log.Printf("encode err: %v", err)
				continue
			}
			if err := port.WriteLine(line); err != nil {
				log.Printf("write err: %v", err)
			}
		}
	}
}

// vehicle moves along a closed polyline at a fixed lateral offset.
type vehicle struct {
	path   []model.Waypoint
	offset float64
	seg    int
	along  float64
}

// advance moves the vehicle dist meters forward and returns its pose.
func (v *vehicle) advance(dist float64) model.Pose {
	n := len(v.path)
	v.along += dist
	for i := 0; i < n; i++ {
		a, b := v.path[v.seg], v.path[(v.seg+1)%n]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		if v.along <= l {
			break
		}
		v.along -= l
		v.seg = (v.seg + 1) % n
	}
	a, b := v.path[v.seg], v.path[(v.seg+1)%n]
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return model.Pose{X: a.X, Y: a.Y, Z: a.Z}
	}
	t := math.Min(v.along/l, 1)
	// left-hand normal of the segment
	nx, ny := -dy/l, dx/l
	return model.Pose{
		X: a.X + t*dx + v.offset*nx,
		Y: a.Y + t*dy + v.offset*ny,
		Z: a.Z + t*(b.Z-a.Z),
	}
}
