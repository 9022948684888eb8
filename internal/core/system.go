// Package core contains the runtime of the waypoint updater: the tick loop,
// pose ingestion, window sinks, the HTTP hub and the System that wires them
// together from configuration.
package core

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"WaypointUpdater/internal/device"
	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
	"WaypointUpdater/internal/store"
)

// System manages the lifecycle of the updater and its inputs and outputs.
type System struct {
	cfg     *model.Config
	Updater *Updater
	Hub     *Hub
	Store   *store.Store
	Reader  *PoseReader
	GPS     *device.GpsDevice
	Output  *LineSink

	gpsStop   func()
	started   bool
	startLock sync.Mutex
}

// NewSystem reads the YAML configuration at cfgPath and creates a System.
func NewSystem(cfgPath string) (*System, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// New constructs a System from an already loaded configuration. Serial
// devices are not opened until StartAll.
func New(cfg *model.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	s := &System{cfg: cfg, Updater: NewUpdater(cfg.Updater)}

	if cfg.Global.StorePath != "" {
		st, err := store.Open(cfg.Global.StorePath)
		if err != nil {
			return nil, err
		}
		s.Store = st
	}

	if addr := cfg.Global.Addr(); addr != "" {
		out, err := parser.ForFormat(cfg.Global.WireFormat)
		if err != nil {
			return nil, err
		}
		s.Hub = NewHub(addr, s.Updater, out)
		if s.Store != nil {
			s.Hub.SetStore(s.Store)
		}
		s.Updater.AddSink(s.Hub)
	}

	if cfg.GPS.Device != "" {
		origin := device.Origin{Lat: cfg.GPS.OriginLat, Lon: cfg.GPS.OriginLon}
		baud := cfg.GPS.Baud
		if baud == 0 {
			baud = model.DefaultBaud
		}
		s.GPS = device.NewSerialGpsDevice(cfg.GPS.Device, baud, origin)
	}

	if err := s.loadInitialPath(); err != nil {
		_ = s.Store.Close()
		return nil, err
	}
	return s, nil
}

// loadInitialPath loads the configured path file, or restores the last
// stored path when no file is configured.
func (s *System) loadInitialPath() error {
	if s.cfg.Path.File != "" {
		_, err := s.LoadPathFile(s.cfg.Path.File, s.cfg.Path.Format)
		return err
	}
	if s.Store == nil {
		return nil
	}
	rec, err := s.Store.LatestPath()
	if errors.Is(err, store.ErrNoPath) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore path: %w", err)
	}
	if err := s.Updater.RestoreRoute(rec.RouteID, rec.Waypoints); err != nil {
		log.Printf("[system] stored route %s not restored: %v", rec.RouteID, err)
	}
	return nil
}

// LoadPathFile reads a path file, loads it into the updater and saves it to
// the store. An empty format is guessed from the file extension.
func (s *System) LoadPathFile(path, format string) (string, error) {
	if format == "" {
		format = parser.FormatFromName(path)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open path file: %w", err)
	}
	defer f.Close()

	wps, err := parser.ReadPath(f, format)
	if err != nil {
		return "", fmt.Errorf("read path file %s: %w", path, err)
	}
	id, err := s.Updater.LoadPath(wps)
	if err != nil {
		return "", fmt.Errorf("load path file %s: %w", path, err)
	}
	if s.Store != nil {
		if err := s.Store.SavePath(id, wps); err != nil {
			log.Printf("[system] %v", err)
		}
	}
	return id, nil
}

// StartAll opens the configured devices and starts every component. A
// device that fails to open is logged and left out.
func (s *System) StartAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}

	if s.cfg.Output.Device != "" {
		dev, err := device.NewSerialDevice(s.cfg.Output.Device, s.cfg.Output.BaudRate())
		if err != nil {
			log.Printf("output %s open err: %v", s.cfg.Output.Device, err)
		} else {
			p, _ := parser.ForFormat(s.cfg.Output.Format(s.cfg.Global.WireFormat))
			s.Output = &LineSink{Device: dev, Parser: p}
			s.Updater.AddSink(s.Output)
		}
	}

	if s.cfg.Pose.Device != "" {
		dev, err := device.NewSerialDevice(s.cfg.Pose.Device, s.cfg.Pose.BaudRate())
		if err != nil {
			log.Printf("pose %s open err: %v", s.cfg.Pose.Device, err)
		} else {
			p, _ := parser.ForFormat(s.cfg.Pose.Format(s.cfg.Global.WireFormat))
			s.Reader = NewPoseReader(s.cfg.Pose.Device, dev, p, s.Updater)
			if err := s.Reader.Start(); err != nil {
				log.Printf("pose reader %s start err: %v", s.Reader.ID, err)
			}
		}
	}

	if s.GPS != nil {
		ch := make(chan model.Pose, 8)
		stop, err := s.GPS.Read(ch)
		if err != nil {
			log.Printf("gps %s start err: %v", s.GPS.ID, err)
		} else {
			s.gpsStop = stop
			go ForwardPoses(ch, s.Updater)
		}
	}

	if s.Hub != nil {
		go func() {
			if err := s.Hub.Start(); err != nil {
				log.Printf("hub err: %v", err)
			}
		}()
	}

	if err := s.Updater.Start(); err != nil {
		return err
	}
	s.started = true
	return nil
}

// StopAll stops all running components and closes the store.
func (s *System) StopAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		err := s.Store.Close()
		s.Store = nil
		return err
	}

	s.Updater.Stop()
	var err error
	if s.Reader != nil {
		err = multierr.Append(err, s.Reader.Stop())
	}
	if s.gpsStop != nil {
		s.gpsStop()
		s.gpsStop = nil
	}
	if s.Output != nil {
		err = multierr.Append(err, s.Output.Device.Close())
	}
	if s.Hub != nil {
		err = multierr.Append(err, s.Hub.Stop())
	}
	err = multierr.Append(err, s.Store.Close())
	s.Store = nil
	s.started = false
	return err
}
