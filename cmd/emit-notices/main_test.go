package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func memoryConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notification.yaml")
	body := "store:\n  driver: memory\nlock:\n  dir: " + t.TempDir() + "\nbackends:\n  - label: log\n    backend: log\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_DrainsEmptyQueue(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"-config", memoryConfig(t), "-lock-wait", "0s"}, &stderr)
	assert.Equal(t, 0, code, stderr.String())
}

func TestRun_ConfigurationErrorExitsOne(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to read config file")
}

func TestRun_BadFlagExitsOne(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-lock-wait", "soon"}, &stderr))
}
