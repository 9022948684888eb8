package core

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"WaypointUpdater/internal/ahead"
	"WaypointUpdater/internal/index"
	"WaypointUpdater/internal/model"
)

var (
	// ErrNotReady means no pose or no path has been received yet.
	ErrNotReady = errors.New("updater not ready")
	// ErrIndexOverrun means the lookahead window would run past the path end.
	ErrIndexOverrun = errors.New("lookahead window overruns path end")
)

// Sink receives every published window.
type Sink interface {
	Publish(w model.Window) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(w model.Window) error

// Publish calls f(w).
func (f SinkFunc) Publish(w model.Window) error { return f(w) }

// Route is a loaded path together with its index. A Route is never modified
// after it is built; loading a new path swaps in a new Route.
type Route struct {
	ID        string
	Waypoints []model.Waypoint
	Index     *index.Index
	LoadedAt  time.Time
}

// Updater is the window publisher. On every tick it locates the vehicle on
// the current route and publishes the next lookahead waypoints to its sinks.
//
// Pose, route and constraints may be written from any goroutine; each is
// swapped as a whole so a tick never observes a partial update.
type Updater struct {
	lookahead int
	interval  time.Duration
	tail      string

	route    atomic.Pointer[Route]
	pose     atomic.Pointer[model.Pose]
	traffic  atomic.Int64
	obstacle atomic.Int64

	mu      sync.Mutex
	sinks   []Sink
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewUpdater builds an Updater from config; defaults apply to zero fields.
func NewUpdater(cfg model.UpdaterConfig, sinks ...Sink) *Updater {
	u := &Updater{
		lookahead: cfg.LookaheadCount(),
		interval:  cfg.Interval(),
		tail:      cfg.Tail(),
		sinks:     sinks,
	}
	u.traffic.Store(-1)
	u.obstacle.Store(-1)
	return u
}

// AddSink registers another window consumer.
func (u *Updater) AddSink(s Sink) {
	u.mu.Lock()
	u.sinks = append(u.sinks, s)
	u.mu.Unlock()
}

// UpdatePose replaces the current pose. The latest pose always wins; poses
// with non-finite coordinates are dropped.
func (u *Updater) UpdatePose(p model.Pose) {
	if !p.Finite() {
		log.Printf("[updater] dropping non-finite pose (%v, %v)", p.X, p.Y)
		return
	}
	if p.Stamp.IsZero() {
		p.Stamp = time.Now()
	}
	u.pose.Store(&p)
	poseUpdates.Inc()
}

// Pose returns the current pose, if any.
func (u *Updater) Pose() (model.Pose, bool) {
	p := u.pose.Load()
	if p == nil {
		return model.Pose{}, false
	}
	return *p, true
}

// LoadPath replaces the route with wps. The index is built before the swap,
// so ticks see either the old route or the complete new one. The waypoints
// are copied and the new route ID is returned.
func (u *Updater) LoadPath(wps []model.Waypoint) (string, error) {
	r, err := buildRoute(uuid.NewString(), wps)
	if err != nil {
		return "", err
	}
	u.swapRoute(r)
	return r.ID, nil
}

// RestoreRoute installs a previously persisted path under its original ID.
func (u *Updater) RestoreRoute(id string, wps []model.Waypoint) error {
	r, err := buildRoute(id, wps)
	if err != nil {
		return err
	}
	u.swapRoute(r)
	return nil
}

func buildRoute(id string, wps []model.Waypoint) (*Route, error) {
	if len(wps) < 2 {
		return nil, fmt.Errorf("route of %d waypoints: %w", len(wps), ahead.ErrDegeneratePath)
	}
	owned := make([]model.Waypoint, len(wps))
	copy(owned, wps)
	ix, err := index.Build(owned)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return &Route{ID: id, Waypoints: owned, Index: ix, LoadedAt: time.Now()}, nil
}

func (u *Updater) swapRoute(r *Route) {
	u.route.Store(r)
	pathLoads.Inc()
	routeWaypoints.Set(float64(len(r.Waypoints)))
	log.Printf("[updater] route %s loaded: %d waypoints", r.ID, len(r.Waypoints))
}

// Lookahead returns the configured window length.
func (u *Updater) Lookahead() int { return u.lookahead }

// Interval returns the tick period.
func (u *Updater) Interval() time.Duration { return u.interval }

// Tail returns the tail policy, drop or clamp.
func (u *Updater) Tail() string { return u.tail }

// Route returns the current route or nil.
func (u *Updater) Route() *Route {
	return u.route.Load()
}

// SetTrafficWaypoint records the waypoint of the next red light; -1 clears it.
func (u *Updater) SetTrafficWaypoint(i int) {
	u.traffic.Store(int64(max(i, -1)))
}

// SetObstacleWaypoint records the waypoint of the next obstacle; -1 clears it.
func (u *Updater) SetObstacleWaypoint(i int) {
	u.obstacle.Store(int64(max(i, -1)))
}

// Constraints returns the traffic and obstacle inputs as of now.
func (u *Updater) Constraints() model.Constraints {
	return model.Constraints{
		TrafficWaypoint:  int(u.traffic.Load()),
		ObstacleWaypoint: int(u.obstacle.Load()),
	}
}

// Window computes the lookahead window for the current pose and route.
// It returns ErrNotReady before both are known and ErrIndexOverrun when the
// window would pass the path end under the drop tail policy.
func (u *Updater) Window() (model.Window, error) {
	r := u.route.Load()
	p := u.pose.Load()
	if r == nil || p == nil {
		return model.Window{}, ErrNotReady
	}

	nearest, err := r.Index.Nearest(p.X, p.Y)
	if err != nil {
		return model.Window{}, fmt.Errorf("nearest waypoint: %w", err)
	}
	cur, err := ahead.Resolve(p.X, p.Y, nearest, r.Waypoints, u.Constraints())
	if err != nil {
		return model.Window{}, fmt.Errorf("resolve ahead: %w", err)
	}

	n := len(r.Waypoints)
	end := cur + u.lookahead
	if end > n && u.tail != model.TailClamp {
		return model.Window{}, fmt.Errorf("window %d..%d of %d: %w", cur, end, n, ErrIndexOverrun)
	}
	end = lo.Clamp(end, cur, n)

	wps := make([]model.Waypoint, end-cur)
	copy(wps, r.Waypoints[cur:end])
	return model.Window{RouteID: r.ID, Start: cur, Waypoints: wps}, nil
}

// Tick computes one window and publishes it. It reports whether a window was
// published; not-ready and overrun ticks are skipped silently.
func (u *Updater) Tick() bool {
	began := time.Now()
	defer func() { tickDuration.Observe(time.Since(began).Seconds()) }()

	w, err := u.Window()
	switch {
	case err == nil:
	case errors.Is(err, ErrNotReady):
		ticks.WithLabelValues("not_ready").Inc()
		return false
	case errors.Is(err, ErrIndexOverrun):
		ticks.WithLabelValues("overrun").Inc()
		return false
	default:
		ticks.WithLabelValues("error").Inc()
		log.Printf("[updater] tick skipped: %v", err)
		return false
	}

	u.mu.Lock()
	sinks := u.sinks
	u.mu.Unlock()
	for _, s := range sinks {
		if err := s.Publish(w); err != nil {
			log.Printf("[updater] publish err: %v", err)
		}
	}
	ticks.WithLabelValues("published").Inc()
	return true
}

// Start begins the periodic tick loop in a background goroutine.
func (u *Updater) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return nil
	}
	if u.interval <= 0 {
		return fmt.Errorf("invalid tick interval %v", u.interval)
	}
	u.stop = make(chan struct{})
	u.running = true

	u.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer u.wg.Done()
		ticker := time.NewTicker(u.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				u.Tick()
			}
		}
	}(u.stop)
	log.Printf("[updater] started: lookahead=%d interval=%v tail=%s", u.lookahead, u.interval, u.tail)
	return nil
}

// Stop ends the tick loop and waits for an in-flight tick to finish.
func (u *Updater) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	close(u.stop)
	u.running = false
	u.mu.Unlock()
	u.wg.Wait()
}
