package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, "%s should have a short description", cmd.Name())
	}

	for _, want := range []string{"serve", "worker", "compress"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestCompressCommandWritesDeliverable(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "result")
	t.Setenv("APP_ENV", "development")

	src := filepath.Join(in, "photo.png")
	png := testhelpers.EncodePNG(t, testhelpers.NoiseImage(96, 64, 4))
	require.NoError(t, os.WriteFile(src, png, 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"compress", "--format", "webp", "--quality", "75", "-o", out, src})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "photo.webp"))
	require.NoError(t, err)
	assert.Less(t, len(data), len(png))
	assert.Contains(t, stdout.String(), "photo.png -> photo.webp")
}

func TestBuildLocalBatchFallsBack(t *testing.T) {
	p := newPipeline(testConfig(t), nopLogger(), false)

	compressFormat, compressQuality = "tiff", 0
	t.Cleanup(func() { compressFormat, compressQuality = string(models.DefaultImageFormat), 0 })

	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	batch, err := buildLocalBatch(p.images, []string{path}, 80)
	require.NoError(t, err)
	assert.Equal(t, models.FormatJPEG, batch.Format)
	assert.Equal(t, 80, batch.Quality)
	assert.Equal(t, "a.jpg", batch.Items[0].Name)

	doc, err := buildLocalBatch(p.documents, []string{path}, 80)
	require.NoError(t, err)
	assert.Equal(t, models.FormatPDF, doc.Format)

	_, err = buildLocalBatch(p.images, []string{filepath.Join(t.TempDir(), "missing.jpg")}, 80)
	assert.Error(t, err)
}

func TestMemoryLimiters(t *testing.T) {
	cfg := testConfig(t)
	p := newPipeline(cfg, nopLogger(), false)

	images, documents, probe, closeFn, err := p.limiters()
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, cfg.Limits.ImageRequestsPerWindow, images.Policy().Limit)
	assert.Equal(t, cfg.Limits.DocumentRequestsPerWindow, documents.Policy().Limit)
	assert.Equal(t, healthy, probe(context.Background()))
	assert.Equal(t, "not configured", p.queueProbe(context.Background()))
}

func TestUnknownLimiterBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Backend = "memcached"
	p := newPipeline(cfg, nopLogger(), false)

	_, _, _, _, err := p.limiters()
	assert.Error(t, err)
}

func TestWriteDeliverableKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	d := &models.Deliverable{Filename: "compressed-images.zip", Data: []byte("second")}
	require.NoError(t, os.WriteFile(filepath.Join(dir, d.Filename), []byte("first"), 0o644))

	path, err := writeDeliverable(dir, d)
	require.NoError(t, err)
	assert.NotEqual(t, filepath.Join(dir, d.Filename), path)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "compressed-images_"))
	assert.Equal(t, ".zip", filepath.Ext(path))

	first, err := os.ReadFile(filepath.Join(dir, d.Filename))
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))
}
