package main

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
)

func TestParseArgs(t *testing.T) {
	a, err := parseArgs([]string{"-project", "p1", "-format", "yolo", "-normalize", "-strict", "-out", "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, "p1", a.opt.ProjectID)
	assert.Equal(t, export.FormatYOLO, a.opt.Format)
	assert.True(t, a.opt.NormalizeBoxes)
	assert.True(t, a.opt.Strict)
	assert.Equal(t, "/tmp/x", a.out)

	a, err = parseArgs([]string{"-project", "p1"})
	require.NoError(t, err)
	assert.Equal(t, export.FormatJSON, a.opt.Format)
	assert.False(t, a.opt.NormalizeBoxes)
	assert.False(t, a.opt.Strict)

	a, err = parseArgs([]string{"-formats"})
	require.NoError(t, err)
	assert.True(t, a.list)

	_, err = parseArgs(nil)
	assert.EqualError(t, err, "missing -project")
}

func TestParseArgs_BadFormat(t *testing.T) {
	var a cliArgs
	fs := newFlagSet(&a)
	fs.SetOutput(io.Discard)
	assert.Error(t, fs.Parse([]string{"-format", "csv"}))
}

func TestFlagUsage(t *testing.T) {
	var a cliArgs
	fs := newFlagSet(&a)

	usage := func(name string) string {
		f := fs.Lookup(name)
		require.NotNil(t, f, name)
		return f.Usage
	}
	// normalize applies to every format, not only json
	assert.Equal(t, "swap inverted box corners before encoding (all formats)", usage("normalize"))
	assert.NotContains(t, usage("normalize"), "json")
	// tolerant mode encodes malformed shapes, it does not skip them
	assert.NotContains(t, usage("strict"), "skipping")
	assert.Contains(t, usage("strict"), "degenerate")

	assert.IsType(t, &flag.Flag{}, fs.Lookup("formats"))
}
