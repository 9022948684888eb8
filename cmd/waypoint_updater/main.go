// Package main is the entry point of the waypoint updater.
// It initializes the logger, loads the configuration, constructs the System
// (updater, hub, pose inputs, window outputs) and runs it until interrupted.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"WaypointUpdater/internal/core"
	"WaypointUpdater/internal/util"
)

func main() {
	util.SetupLogger()

	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	pathFile := flag.String("path", "", "path file to load, overrides path.file")
	flag.Parse()

	log.Printf("[main] using config: %s", *cfgPath)

	sys, err := core.NewSystem(*cfgPath)
	if err != nil {
		log.Fatalf("failed to create system: %v", err)
	}
	if *pathFile != "" {
		id, err := sys.LoadPathFile(*pathFile, "")
		if err != nil {
			log.Fatalf("failed to load path: %v", err)
		}
		util.Info("route %s loaded from %s", id, *pathFile)
	}

	if err := sys.StartAll(); err != nil {
		log.Fatalf("failed to start system: %v", err)
	}

	// wait for Ctrl+C or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[main] shutting down...")
	if err := sys.StopAll(); err != nil {
		util.Error("shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("[main] stopped cleanly")
}
