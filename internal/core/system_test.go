package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WaypointUpdater/internal/model"
)

const samplePath = `# x,y,z,speed
x,y,z,speed
0,0,0,3
1,0,0,3
2,0,0,3
3,0,0,3
4,0,0,3
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestNewSystemLoadsPathAndRestores(t *testing.T) {
	dir := t.TempDir()
	pathFile := writeFile(t, dir, "route.csv", samplePath)
	cfg := &model.Config{
		Global:  model.GlobalConfig{ListenAddr: "-", StorePath: filepath.Join(dir, "state", "paths.db")},
		Updater: model.UpdaterConfig{Lookahead: 2},
		Path:    model.PathConfig{File: pathFile},
	}

	s, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, s.Hub)
	route := s.Updater.Route()
	require.NotNil(t, route)
	assert.Len(t, route.Waypoints, 5)
	require.NoError(t, s.StopAll())

	cfg.Path.File = ""
	restored, err := New(cfg)
	require.NoError(t, err)
	defer restored.StopAll()
	require.NotNil(t, restored.Updater.Route())
	assert.Equal(t, route.ID, restored.Updater.Route().ID)
	assert.Equal(t, route.Waypoints[3].X, restored.Updater.Route().Waypoints[3].X)
}

func TestNewSystemBadPathFile(t *testing.T) {
	cfg := &model.Config{
		Global: model.GlobalConfig{ListenAddr: "-"},
		Path:   model.PathConfig{File: filepath.Join(t.TempDir(), "missing.csv")},
	}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewSystemFromYAML(t *testing.T) {
	dir := t.TempDir()
	pathFile := writeFile(t, dir, "route.json", `[{"x":0,"y":0},{"x":1,"y":1},{"x":2,"y":2}]`)
	cfgFile := writeFile(t, dir, "config.yml", `
global:
  wire_format: csv
  listen_addr: "127.0.0.1:0"
updater:
  lookahead: 2
  rate_hz: 50
path:
  file: `+pathFile+`
`)

	s, err := NewSystem(cfgFile)
	require.NoError(t, err)
	require.NotNil(t, s.Hub)
	require.NotNil(t, s.Updater.Route())

	require.NoError(t, s.StartAll())
	require.NoError(t, s.StartAll())
	s.Updater.UpdatePose(model.Pose{X: 0.2, Y: 0.1})
	assert.Eventually(t, func() bool {
		_, ok := s.Hub.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.StopAll())
}

func TestLoadPathFileUnknownFormat(t *testing.T) {
	s, err := New(&model.Config{Global: model.GlobalConfig{ListenAddr: "-"}})
	require.NoError(t, err)
	_, err = s.LoadPathFile(writeFile(t, t.TempDir(), "p.txt", samplePath), "xml")
	assert.Error(t, err)
}
