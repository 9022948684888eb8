package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waypoint_updater_ticks_total",
		Help: "Control ticks by outcome (published, not_ready, overrun, error)",
	}, []string{"outcome"})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waypoint_updater_tick_duration_seconds",
		Help:    "Time spent computing and publishing one window",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
	})

	poseUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waypoint_updater_pose_updates_total",
		Help: "Pose updates received",
	})

	pathLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waypoint_updater_path_loads_total",
		Help: "Paths loaded or restored",
	})

	routeWaypoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waypoint_updater_route_waypoints",
		Help: "Waypoints in the current route",
	})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waypoint_updater_ws_clients",
		Help: "Connected websocket clients",
	})
)
