package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 17, c.Len())

	d, ok := c.Lookup("T_JUP_CONJ_DSC")
	require.True(t, ok)
	assert.Equal(t, 90, d.Score)
	assert.Equal(t, Transit, d.Technique)
	assert.NotEmpty(t, d.Title)
	assert.NotEmpty(t, d.Description)

	score, err := c.Score("SA_7Ruler_CONJ_ASC_DSC")
	require.NoError(t, err)
	assert.Equal(t, 95, score)

	_, err = c.Score("NOPE")
	assert.True(t, errors.Is(err, ErrUnknownEvent))

	for _, def := range c.All() {
		assert.Greater(t, def.Score, 0, def.ID)
		assert.Contains(t, []Technique{Transit, Progression, SolarArc}, def.Technique, def.ID)
	}
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	_, err := New([]Definition{{ID: "A", Score: 10}, {ID: "A", Score: 5}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]Definition{{ID: "A", Score: 0}})
	assert.ErrorContains(t, err, "positive")

	_, err = New([]Definition{{Score: 3}})
	assert.ErrorContains(t, err, "empty id")

	c, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "events.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`events:
  - id: X_ONE
    technique: transit
    score: 10
    title: One
    description: first
`), 0o644))

	tomlPath := filepath.Join(dir, "events.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`[[events]]
id = "X_TWO"
technique = "progression"
score = 20
title = "Two"
description = "second"
`), 0o644))

	c, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"X_ONE"}, c.IDs())

	c, err = LoadFile(tomlPath)
	require.NoError(t, err)
	d, ok := c.Lookup("X_TWO")
	require.True(t, ok)
	assert.Equal(t, Progression, d.Technique)
	assert.Equal(t, 20, d.Score)

	badPath := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{}`), 0o644))
	_, err = LoadFile(badPath)
	assert.ErrorContains(t, err, "unsupported catalog format")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("events:\n  - id: A\n    score: 1\n    weight: 3\n"), "yaml")
	assert.Error(t, err)
}

func TestDefaultRegions(t *testing.T) {
	r, err := DefaultRegions()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", r.Zone)
	assert.Len(t, r.All(), 47)

	tokyo, err := r.Lookup("Tokyo")
	require.NoError(t, err)
	assert.InDelta(t, 139.69, tokyo.Longitude, 1e-9)
	assert.InDelta(t, 35.69, tokyo.Latitude, 1e-9)

	byName, err := r.Lookup("東京都")
	require.NoError(t, err)
	assert.Equal(t, tokyo, byName)

	_, err = r.Lookup("atlantis")
	assert.Error(t, err)
}
