package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorustyt/navtile/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planeObj = `# 38.4 x 38.4 plane, four tiles
v 0 0 0
v 38.4 0 0
v 38.4 0 38.4
v 0 0 38.4
f 1 3 2
f 1 4 3
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := NewRootCmd()
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(append(args, "--log-level", "ERROR"))
	err := c.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestBuildInspectPath(t *testing.T) {
	dir := t.TempDir()
	obj := writeFile(t, dir, "plane.obj", planeObj)
	store := filepath.Join(dir, "tiles.ntar")
	dump := filepath.Join(dir, "tiles.obj")

	out, err := run(t, "build", "--obj", obj, "--store", store, "--dump-obj", dump)
	require.NoError(t, err, out)
	assert.Contains(t, out, "built 4 tiles (0 empty, 0 failed)")

	g, err := recast.LoadObj(dump, 1)
	require.NoError(t, err)
	assert.Positive(t, g.TriangleCount())

	out, err = run(t, "inspect", "--store", store)
	require.NoError(t, err, out)
	assert.Contains(t, out, "4 tiles in")
	assert.Contains(t, out, "4 loaded")
	assert.Contains(t, out, "tile (1,1)")

	out, err = run(t, "path", "--store", store, "--from", "1,0,1", "--to", "37,0,37")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	last := strings.Fields(lines[len(lines)-1])
	require.Len(t, last, 3)
	assert.Equal(t, "37.000", last[0])
	assert.Equal(t, "37.000", last[2])

	_, err = run(t, "path", "--store", store, "--from", "1,0,1", "--to", "300,0,300")
	assert.Error(t, err)
	_, err = run(t, "path", "--store", store, "--from", "1,0", "--to", "3,0,3")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	obj := writeFile(t, dir, "plane.obj", planeObj)
	cfg := writeFile(t, dir, "navtool.yaml", `
store:
  kind: sqlite
  path: `+filepath.Join(dir, "tiles.db")+`
navmesh:
  build_workers: 2
`)
	out, err := run(t, "--config", cfg, "build", "--obj", obj)
	require.NoError(t, err, out)
	assert.Contains(t, out, "built 4 tiles")
	_, err = os.Stat(filepath.Join(dir, "tiles.db"))
	assert.NoError(t, err)

	bad := writeFile(t, dir, "bad.yaml", "build:\n  cell_size: -1\n")
	_, err = run(t, "--config", bad, "inspect")
	assert.Error(t, err)
}

func TestDrivers(t *testing.T) {
	out, err := run(t, "drivers")
	require.NoError(t, err)
	assert.Contains(t, out, "softnav")
}

func TestParseVec3(t *testing.T) {
	v, err := parseVec3("1, 2.5,-3")
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), v[1])
	assert.Equal(t, float32(-3), v[2])
	_, err = parseVec3("1,x,3")
	assert.Error(t, err)
}
