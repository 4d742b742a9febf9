package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNavtoolBuildPathObj(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nav.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: warn\n"), 0o644))
	blob := filepath.Join(dir, "world.bin")

	out, err := run(t, "-c", cfgPath, "build", "--tiles-x", "2", "--tiles-z", "1",
		"--cylinder", "4.8,0,4.8,1,2", "--box", "12,0,1,13,1,2", "--rebuilds", "1", "-o", blob)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 obstacles")
	assert.Contains(t, out, "not up to date")

	out, err = run(t, "-c", cfgPath, "path", "-i", blob, "--from", "1,0,4.8", "--to", "8.5,0,4.8")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Greater(t, len(lines), 2, "path goes around the cylinder")

	objPath := filepath.Join(dir, "world.obj")
	_, err = run(t, "-c", cfgPath, "obj", "-i", blob, "-o", objPath, "--obstacles", "--from", "1,0,4.8", "--to", "8.5,0,4.8")
	require.NoError(t, err)
	data, err := os.ReadFile(objPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "o Obstacles\n")
	assert.Contains(t, string(data), "o Path\n")
}

func TestNavtoolErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "build", "--cylinder", "1,2,3", "-o", filepath.Join(dir, "x.bin"))
	assert.ErrorContains(t, err, "want 5 comma separated numbers")

	_, err = run(t, "path", "-i", filepath.Join(dir, "missing.bin"), "--from", "0,0,0", "--to", "1,0,1")
	assert.Error(t, err)

	_, err = run(t, "obj", "--from", "0,0,0")
	assert.Error(t, err, "--from needs --to")

	_, err = run(t, "-c", filepath.Join(dir, "missing.yaml"), "obj")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNavtoolBench(t *testing.T) {
	dir := t.TempDir()
	floor := "v 0 0 0\nv 19 0 0\nv 19 0 9.6\nv 0 0 9.6\nf 1 3 2\nf 1 4 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "floor.obj"), []byte(floor), 0o644))
	cases := "s Tile Cache\nf floor.obj\npf 1 0 4.95 18 0 4.95 ffff 10\nrc 1 0 8 18 0 8 ffff 10\n"
	casesPath := filepath.Join(dir, "cases.txt")
	require.NoError(t, os.WriteFile(casesPath, []byte(cases), 0o644))

	out, err := run(t, "bench", casesPath, "-n", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Runs: 3, avg")
	assert.Contains(t, out, "Test Results:")
	assert.Contains(t, out, " - Path 00:")
	assert.Contains(t, out, " - Raycast 01:")
	assert.Contains(t, out, "2 points")

	_, err = run(t, "bench")
	assert.Error(t, err)
}
