package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-highlighter/internal/document"
	"pdf-highlighter/internal/types"
)

func TestParseRect(t *testing.T) {
	tests := []struct {
		in      string
		want    document.Rect
		wantErr bool
	}{
		{"10,20,110,40", document.Rect{X0: 10, Y0: 20, X1: 110, Y1: 40}, false},
		{" 110 , 40 , 10 , 20 ", document.Rect{X0: 10, Y0: 20, X1: 110, Y1: 40}, false},
		{"1.5,2.5,3.5,4.5", document.Rect{X0: 1.5, Y0: 2.5, X1: 3.5, Y1: 4.5}, false},
		{"1,2,3", document.Rect{}, true},
		{"a,2,3,4", document.Rect{}, true},
		{"1,1,1,5", document.Rect{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRect(tt.in)
			if tt.wantErr {
				assert.True(t, types.IsCode(err, types.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "*****", maskKey("short"))
	assert.Equal(t, "sk-a****wxyz", maskKey("sk-a1234wxyz"))
}

func execute(t *testing.T, args ...string) string {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out := execute(t, "--config", path, "config", "set", "model", "gpt-test")
	assert.Contains(t, out, "model updated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gpt-test")

	out = execute(t, "--config", path, "config", "show")
	assert.Contains(t, out, "gpt-test")
	assert.Contains(t, out, "# "+path)

	assert.Equal(t, path+"\n", execute(t, "--config", path, "config", "path"))
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--config", path, "config", "set", "chunk_size", "5"})
	assert.Error(t, rootCmd.Execute())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "invalid values are not saved")
}

func TestResultsList(t *testing.T) {
	dir := t.TempDir()
	out := execute(t, "--config", filepath.Join(dir, "c.toml"), "--results", dir, "results", "list")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
}

func TestResultsErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "c.toml")

	out := execute(t, "--config", cfg, "--results", dir, "results", "errors")
	assert.Contains(t, out, "STAGE")

	execute(t, "--config", cfg, "--results", dir, "results", "errors", "--clear")
	_, err := os.Stat(filepath.Join(dir, "_errors", "errors.json"))
	assert.NoError(t, err, "clearing writes an empty log")
}
