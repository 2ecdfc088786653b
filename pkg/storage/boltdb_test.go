package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBlobs(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetBlob("calib/result.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.PutBlob("calib/result.json", []byte(`{"rms":0.3}`)))
	require.NoError(t, store.PutBlob("images/0001.jpg", []byte{0xff, 0xd8}))

	data, err := store.GetBlob("calib/result.json")
	require.NoError(t, err)
	assert.Equal(t, `{"rms":0.3}`, string(data))

	keys, err := store.ListBlobs()
	require.NoError(t, err)
	assert.Equal(t, []string{"calib/result.json", "images/0001.jpg"}, keys)

	require.NoError(t, store.DeleteBlob("calib/result.json"))
	require.NoError(t, store.DeleteBlob("calib/result.json"))
	_, err = store.GetBlob("calib/result.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPanels(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	first := &panel.Layout{ID: "b", TypeID: "type.googleapis.com/google.protobuf.DoubleValue", Options: []int{1, 0}, Created: now}
	second := &panel.Layout{ID: "a", TagFilter: "^gps", Created: now.Add(time.Second)}
	require.NoError(t, store.SavePanel(second))
	require.NoError(t, store.SavePanel(first))

	got, err := store.GetPanel("b")
	require.NoError(t, err)
	assert.Equal(t, first.TypeID, got.TypeID)
	assert.Equal(t, []int{1, 0}, got.Options)

	layouts, err := store.ListPanels()
	require.NoError(t, err)
	require.Len(t, layouts, 2)
	assert.Equal(t, "b", layouts[0].ID)
	assert.Equal(t, "a", layouts[1].ID)

	require.NoError(t, store.DeletePanel("b"))
	_, err = store.GetPanel("b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.PutBlob("k", []byte("v")))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer store.Close()

	data, err := store.GetBlob("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

var _ Store = (*BoltStore)(nil)

func TestBackup(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutBlob("calib/result.json", []byte(`{"rms":0.3}`)))

	dir := t.TempDir()
	require.NoError(t, store.Backup(filepath.Join(dir, DatabaseFile)))

	copied, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer copied.Close()

	data, err := copied.GetBlob("calib/result.json")
	require.NoError(t, err)
	assert.Equal(t, `{"rms":0.3}`, string(data))
}
