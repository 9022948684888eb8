package path

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WaypointUpdater/internal/model"
)

func line() []model.Waypoint {
	return []model.Waypoint{
		{X: 0, Y: 0, Z: 0},
		{X: 3, Y: 4, Z: 0},
		{X: 3, Y: 4, Z: 12},
		{X: 4, Y: 4, Z: 12},
	}
}

func TestDistance(t *testing.T) {
	wps := line()

	t.Run("zero for same index", func(t *testing.T) {
		for i := range wps {
			d, err := Distance(wps, i, i)
			require.NoError(t, err)
			assert.Zero(t, d)
		}
	})

	t.Run("sums consecutive segments", func(t *testing.T) {
		d, err := Distance(wps, 0, 3)
		require.NoError(t, err)
		assert.InDelta(t, 5+12+1, d, 1e-9)

		d, err = Distance(wps, 1, 2)
		require.NoError(t, err)
		assert.InDelta(t, 12, d, 1e-9)
	})

	t.Run("backwards range walks nothing", func(t *testing.T) {
		d, err := Distance(wps, 3, 1)
		require.NoError(t, err)
		assert.Zero(t, d)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Distance(wps, -1, 2)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = Distance(wps, 0, 4)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("equals sum of parts", func(t *testing.T) {
		a, _ := Distance(wps, 0, 1)
		b, _ := Distance(wps, 1, 3)
		all, _ := Distance(wps, 0, 3)
		assert.InDelta(t, all, a+b, 1e-9)
		assert.False(t, math.IsNaN(all))
	})
}

func TestSpeed(t *testing.T) {
	wps := line()
	require.NoError(t, SetSpeed(wps, 2, 11.1))
	assert.Equal(t, 11.1, Speed(wps[2]))
	assert.Zero(t, Speed(wps[1]))

	require.NoError(t, SetSpeed(wps, 0, -2.5))
	assert.Equal(t, -2.5, Speed(wps[0]))

	assert.ErrorIs(t, SetSpeed(wps, 4, 1), ErrIndexOutOfRange)
}
