package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newstopics/internal/news"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestRunThenTop(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "topics.yaml")
	yaml := fmt.Sprintf("storage:\n  driver: file\n  dsn: %s\nlogging:\n  level: error\n", filepath.Join(dir, "topics.json"))
	require.NoError(t, os.WriteFile(configFile, []byte(yaml), 0o644))
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")

	out := execute(t, "run", "--config", configFile, "--persist", "--format", "markdown")
	assert.Contains(t, out, "# News digest")
	assert.Contains(t, out, "## Greece")
	assert.Contains(t, out, "### 1. Greek parliament passes budget for 2025")

	out = execute(t, "top", "Finance", "--config", configFile, "--limit", "2", "--format", "json")
	var topics []news.Topic
	require.NoError(t, json.Unmarshal([]byte(out), &topics))
	require.Len(t, topics, 2)
	assert.Equal(t, "European Central Bank raises interest rates", topics[0].Headline)
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	t.Setenv("TOPICS_CONFIG", "")
	configPath = ""
	rootCmd.SetArgs([]string{"run", "--format", "xml"})
	rootCmd.SetOut(&bytes.Buffer{})
	err := rootCmd.ExecuteContext(context.Background())
	assert.EqualError(t, err, `unknown format "xml"`)
}
