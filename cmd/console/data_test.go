package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/config"
	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	db, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestClearCache(t *testing.T) {
	db := newDataStore(t)
	require.NoError(t, db.PutBlob("logs/a.log", []byte("a")))
	require.NoError(t, db.PutBlob("logs/b.log", []byte("b")))
	require.NoError(t, db.PutBlob("calib/result.json", []byte("{}")))

	var out bytes.Buffer
	n, err := clearCache(&out, db, "logs/", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "[DRY RUN] Would remove logs/a.log")

	keys, err := db.ListBlobs()
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	out.Reset()
	n, err = clearCache(&out, db, "logs/", false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "Removed 2 cached resources")

	keys, err = db.ListBlobs()
	require.NoError(t, err)
	assert.Equal(t, []string{"calib/result.json"}, keys)
}

func TestExportImportPanels(t *testing.T) {
	src := newDataStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, src.SavePanel(&panel.Layout{
		ID:         "p1",
		TypeID:     "type.googleapis.com/google.protobuf.DoubleValue",
		TagFilter:  "gps",
		Visualizer: 1,
		Created:    created,
	}))
	require.NoError(t, src.SavePanel(&panel.Layout{ID: "p2", Created: created.Add(time.Minute)}))

	path := filepath.Join(t.TempDir(), "panels.json")
	n, err := exportPanels(src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newDataStore(t)
	n, err = importPanels(dst, path, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	layouts, err := dst.ListPanels()
	require.NoError(t, err)
	assert.Empty(t, layouts)

	n, err = importPanels(dst, path, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dst.GetPanel("p1")
	require.NoError(t, err)
	assert.Equal(t, "gps", got.TagFilter)
	assert.Equal(t, 1, got.Visualizer)
	assert.True(t, created.Equal(got.Created))
}

func TestImportPanelsRejectsMissingID(t *testing.T) {
	db := newDataStore(t)
	path := filepath.Join(t.TempDir(), "panels.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"ok"},{"tagFilter":"gps"}]`), 0644))

	_, err := importPanels(db, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layout 1 has no id")

	layouts, err := db.ListPanels()
	require.NoError(t, err)
	assert.Empty(t, layouts)
}

func TestOpenDatabaseMissing(t *testing.T) {
	c := config.Default()
	c.DataDir = t.TempDir()
	useConfig(t, c)

	_, err := openDatabase()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}
