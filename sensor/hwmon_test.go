package sensor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHwmonReadTemperature(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "1-0048", "hwmon", "hwmon3")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1_input"), []byte("42500\n"), 0o644))

	h := Hwmon{Root: root, Bus: 1}
	got, err := h.ReadTemperature(0x48)
	require.NoError(t, err)
	assert.Equal(t, Celsius(42.5), got)

	_, err = h.ReadTemperature(0x49)
	assert.ErrorIs(t, err, ErrNoReading)
}

func TestHwmonBadValue(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "0-004f", "hwmon", "hwmon0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1_input"), []byte("n/a"), 0o644))

	_, err := Hwmon{Root: root}.ReadTemperature(0x4f)
	assert.ErrorContains(t, err, "parse")
}
