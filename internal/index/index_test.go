package index

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WaypointUpdater/internal/model"
)

func wps(xy ...float64) []model.Waypoint {
	out := make([]model.Waypoint, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, model.Waypoint{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func bruteNearest(path []model.Waypoint, x, y float64) int {
	best, bestD := -1, math.MaxFloat64
	for i, wp := range path {
		d := (wp.X-x)*(wp.X-x) + (wp.Y-y)*(wp.Y-y)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func TestBuild(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		ix, err := Build(nil)
		assert.ErrorIs(t, err, ErrEmptyPath)
		assert.Nil(t, ix)
	})

	t.Run("does not reorder input", func(t *testing.T) {
		path := wps(5, 0, 1, 0, 3, 0, 0, 0)
		ix, err := Build(path)
		require.NoError(t, err)
		assert.Equal(t, 4, ix.Len())
		assert.Equal(t, wps(5, 0, 1, 0, 3, 0, 0, 0), path)
	})
}

func TestNearest(t *testing.T) {
	t.Run("not ready before load", func(t *testing.T) {
		var ix *Index
		_, err := ix.Nearest(1, 1)
		assert.ErrorIs(t, err, ErrNotReady)
		assert.Zero(t, ix.Len())
	})

	t.Run("straight line", func(t *testing.T) {
		ix, err := Build(wps(0, 0, 1, 0, 2, 0))
		require.NoError(t, err)

		for _, tc := range []struct {
			x, y float64
			want int
		}{
			{-3, 0, 0},
			{0.4, 0.2, 0},
			{0.8, 0, 1},
			{1.2, 0, 1},
			{1.9, -1, 2},
			{40, 40, 2},
		} {
			got, err := ix.Nearest(tc.x, tc.y)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got, "query (%v,%v)", tc.x, tc.y)
		}
	})

	t.Run("ties resolve to lowest index", func(t *testing.T) {
		// (1,0) is equidistant from indices 0 and 2; 3 duplicates index 1.
		ix, err := Build(wps(0, 0, 5, 5, 2, 0, 5, 5))
		require.NoError(t, err)

		got, err := ix.Nearest(1, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, got)

		got, err = ix.Nearest(5, 5)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("closed loop duplicates start and end", func(t *testing.T) {
		ix, err := Build(wps(0, 0, 1, 0, 1, 1, 0, 1, 0, 0))
		require.NoError(t, err)
		got, err := ix.Nearest(0.1, 0.05)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("matches brute force", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		path := make([]model.Waypoint, 500)
		for i := range path {
			a := float64(i) / float64(len(path)) * 2 * math.Pi
			path[i] = model.Waypoint{X: 100*math.Cos(a) + rng.Float64(), Y: 60*math.Sin(a) + rng.Float64()}
		}
		ix, err := Build(path)
		require.NoError(t, err)

		for i := 0; i < 1000; i++ {
			x, y := rng.Float64()*260-130, rng.Float64()*160-80
			got, err := ix.Nearest(x, y)
			require.NoError(t, err)
			assert.Equal(t, bruteNearest(path, x, y), got)
		}
	})
}

func TestNonFinite(t *testing.T) {
	_, err := Build(wps(0, 0, math.NaN(), 0, 2, 0))
	assert.ErrorIs(t, err, model.ErrNonFinite)

	ix, err := Build(wps(0, 0, 1, 0, 2, 0))
	require.NoError(t, err)
	for _, q := range [][2]float64{{math.NaN(), 0}, {0, math.Inf(1)}, {math.Inf(-1), math.NaN()}} {
		_, err := ix.Nearest(q[0], q[1])
		assert.ErrorIs(t, err, ErrInvalidPosition)
		assert.NotErrorIs(t, err, ErrNotReady)
	}
}
