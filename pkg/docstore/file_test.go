package docstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOpener_MissingFileIsEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	opener := NewFileOpener(dir, logr.Discard())

	store, err := opener.Open("profiles.json")
	require.NoError(t, err)

	_, ok := store.Get("profiles")
	assert.False(t, ok)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileOpener_SaveSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)

	store.Set("profiles", json.RawMessage(`[{"id":"a"}]`))
	require.NoError(t, store.Save())

	// A fresh opener has no cache and must read the file back.
	reopened, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)

	raw, ok := reopened.Get("profiles")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"a"}]`, string(raw))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp file should be renamed away")
}

func TestFileStore_SaveRepeatedlyLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)

	for _, v := range []string{`[1]`, `[1,2]`, `[1,2,3]`} {
		store.Set("profiles", json.RawMessage(v))
		require.NoError(t, store.Save())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "profiles.json", entries[0].Name())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileOpener_OpenSeesWritesFromOtherOpeners(t *testing.T) {
	dir := t.TempDir()
	a := NewFileOpener(dir, logr.Discard())
	b := NewFileOpener(dir, logr.Discard())

	storeA, err := a.Open("profiles.json")
	require.NoError(t, err)
	_, ok := storeA.Get("cli")
	require.False(t, ok)

	storeB, err := b.Open("profiles.json")
	require.NoError(t, err)
	storeB.Set("cli", json.RawMessage(`"from-cli"`))
	require.NoError(t, storeB.Save())

	storeA, err = a.Open("profiles.json")
	require.NoError(t, err)
	storeA.Set("ui", json.RawMessage(`"from-ui"`))
	require.NoError(t, storeA.Save())

	fresh, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)
	cli, ok := fresh.Get("cli")
	require.True(t, ok, "write from the other opener was lost")
	assert.JSONEq(t, `"from-cli"`, string(cli))
	ui, ok := fresh.Get("ui")
	require.True(t, ok)
	assert.JSONEq(t, `"from-ui"`, string(ui))
}

func TestFileOpener_ReopenDropsUnsavedValues(t *testing.T) {
	opener := NewFileOpener(t.TempDir(), logr.Discard())

	store, err := opener.Open("profiles.json")
	require.NoError(t, err)
	store.Set("profiles", json.RawMessage(`[]`))

	store, err = opener.Open("profiles.json")
	require.NoError(t, err)
	_, ok := store.Get("profiles")
	assert.False(t, ok)
}

func TestFileOpener_UnsavedSetIsNotDurable(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)
	store.Set("profiles", json.RawMessage(`[]`))

	reopened, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)
	_, ok := reopened.Get("profiles")
	assert.False(t, ok)
}

func TestFileOpener_CachesStores(t *testing.T) {
	opener := NewFileOpener(t.TempDir(), logr.Discard())

	first, err := opener.Open("profiles.json")
	require.NoError(t, err)
	second, err := opener.Open("profiles.json")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestFileOpener_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profiles.json"), []byte("{not json"), 0600))

	_, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse store file")
}

func TestFileOpener_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profiles.json"), nil, 0600))

	store, err := NewFileOpener(dir, logr.Discard()).Open("profiles.json")
	require.NoError(t, err)
	_, ok := store.Get("profiles")
	assert.False(t, ok)
}

func TestFileOpener_InvalidName(t *testing.T) {
	opener := NewFileOpener(t.TempDir(), logr.Discard())

	for _, name := range []string{"", "  ", "../escape.json", "a/b.json", `a\b.json`, ".."} {
		_, err := opener.Open(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestFileStore_GetReturnsCopy(t *testing.T) {
	store, err := NewFileOpener(t.TempDir(), logr.Discard()).Open("x.json")
	require.NoError(t, err)

	store.Set("k", json.RawMessage(`"abc"`))
	raw, _ := store.Get("k")
	raw[1] = 'z'

	again, _ := store.Get("k")
	assert.Equal(t, `"abc"`, string(again))
}

func TestKeyedMutex_SerializesSameName(t *testing.T) {
	var km KeyedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("profiles.json")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutex_IndependentNames(t *testing.T) {
	var km KeyedMutex

	unlockA := km.Lock("a.json")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b.json")
		unlock()
		close(done)
	}()
	<-done
}
