package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
)

func TestRun_SeedImportExport(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DatabaseURL: "file:" + filepath.Join(dir, "links.sqlite")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	require.NoError(t, run(ctx, cfg, logger, "seed", nil, io.Discard))

	importPath := filepath.Join(dir, "import.json")
	payload := `[
		{"id":"gh1","url":"https://github.com","slug":"GitHub"},
		{"id":"bad1","url":"not a url","slug":"bad"},
		{"id":"dup1","url":"https://dup.example","slug":"test"}
	]`
	require.NoError(t, os.WriteFile(importPath, []byte(payload), 0o600))

	require.NoError(t, run(ctx, cfg, logger, "import", []string{"-file", importPath}, io.Discard))

	var out bytes.Buffer
	require.NoError(t, run(ctx, cfg, logger, "export", nil, &out))

	var links []domain.Link
	require.NoError(t, json.Unmarshal(out.Bytes(), &links))

	bySlug := map[string]domain.Link{}
	for _, l := range links {
		bySlug[l.Slug] = l
	}

	require.Len(t, links, 3)
	assert.Equal(t, "https://github.com", bySlug["GitHub"].URL)
	assert.Equal(t, "https://example.com", bySlug["test"].URL, "existing slug is kept")
	assert.NotContains(t, bySlug, "bad")

	require.NoError(t, run(ctx, cfg, logger, "import", []string{"-file", importPath, "-overwrite"}, io.Discard))

	out.Reset()
	require.NoError(t, run(ctx, cfg, logger, "export", nil, &out))
	require.NoError(t, json.Unmarshal(out.Bytes(), &links))
	for _, l := range links {
		if l.Slug == "test" {
			assert.Equal(t, "https://dup.example", l.URL)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "file:" + filepath.Join(t.TempDir(), "links.sqlite")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.Error(t, run(context.Background(), cfg, logger, "frobnicate", nil, io.Discard))
	require.Error(t, run(context.Background(), cfg, logger, "import", nil, io.Discard))
}
