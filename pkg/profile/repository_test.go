package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambrid/xtream-desk/pkg/docstore"
	"github.com/chambrid/xtream-desk/pkg/xtream"
)

func testAccount(id, name string) xtream.ProfileAccount {
	return xtream.ProfileAccount{
		ID:   id,
		Name: name,
		Config: xtream.XtreamConfig{
			URL:      "http://panel.example:8080",
			Username: "user",
			Password: "pass",
		},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
}

func listIDs(t *testing.T, repo *Repository) []string {
	t.Helper()
	resp := repo.List(context.Background())
	require.True(t, resp.Success, resp.ErrorMessage())
	ids := make([]string, 0, len(*resp.Data))
	for _, p := range *resp.Data {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestRepository_ListEmpty(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())

	resp := repo.List(context.Background())
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Empty(t, *resp.Data)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[],"error":null}`, string(data))
}

func TestRepository_SaveThenList(t *testing.T) {
	opener := docstore.NewMockOpener()
	repo := NewRepository(opener, logr.Discard())
	p := testAccount("p1", "Home")

	resp := repo.Save(context.Background(), p)
	require.True(t, resp.Success)
	assert.Nil(t, resp.Error)

	list := repo.List(context.Background())
	require.True(t, list.Success)
	assert.Equal(t, []xtream.ProfileAccount{p}, *list.Data)

	// The write must have been flushed, not just staged.
	raw, ok := opener.Store(StoreName).Durable(CollectionKey)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"id":"p1"`)
}

func TestRepository_SaveIsIdempotent(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	p := testAccount("p1", "Home")

	require.True(t, repo.Save(context.Background(), p).Success)
	require.True(t, repo.Save(context.Background(), p).Success)

	assert.Equal(t, []string{"p1"}, listIDs(t, repo))
}

func TestRepository_ReplaceByIDKeepsPosition(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, repo.Save(ctx, testAccount(id, "name-"+id)).Success)
	}

	updated := testAccount("b", "renamed")
	updated.IsActive = true
	require.True(t, repo.Save(ctx, updated).Success)

	resp := repo.List(ctx)
	require.True(t, resp.Success)
	profiles := *resp.Data
	require.Len(t, profiles, 3)
	assert.Equal(t, []string{"a", "b", "c"}, listIDs(t, repo))
	assert.Equal(t, updated, profiles[1])
}

func TestRepository_IDsStayUnique(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("p%d", i%5)
		require.True(t, repo.Save(ctx, testAccount(id, "n")).Success)
	}

	ids := listIDs(t, repo)
	assert.Len(t, ids, 5)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, repo.Save(ctx, testAccount(id, id)).Success)
	}

	resp := repo.Delete(ctx, "b")
	require.True(t, resp.Success)
	assert.Equal(t, []string{"a", "c"}, listIDs(t, repo))
}

func TestRepository_DeleteAbsentIsNoOp(t *testing.T) {
	opener := docstore.NewMockOpener()
	repo := NewRepository(opener, logr.Discard())
	ctx := context.Background()

	require.True(t, repo.Save(ctx, testAccount("a", "a")).Success)
	before := opener.Store(StoreName).SaveCount()

	resp := repo.Delete(ctx, "missing")
	require.True(t, resp.Success)
	assert.Equal(t, []string{"a"}, listIDs(t, repo))
	assert.Equal(t, before+1, opener.Store(StoreName).SaveCount(), "delete still flushes")
}

func TestRepository_DeleteOnEmptyStore(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())

	resp := repo.Delete(context.Background(), "x")
	require.True(t, resp.Success)
	assert.Empty(t, listIDs(t, repo))
}

func TestRepository_MalformedCollectionReadsEmpty(t *testing.T) {
	opener := docstore.NewMockOpener()
	opener.Store(StoreName).Seed(CollectionKey, json.RawMessage(`{"not":"a list"}`))
	repo := NewRepository(opener, logr.Discard())

	assert.Empty(t, listIDs(t, repo))

	require.True(t, repo.Save(context.Background(), testAccount("a", "a")).Success)
	assert.Equal(t, []string{"a"}, listIDs(t, repo))
}

func TestRepository_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("open failure", func(t *testing.T) {
		opener := docstore.NewMockOpener()
		opener.OpenErr = errors.New("permission denied")
		repo := NewRepository(opener, logr.Discard())

		save := repo.Save(ctx, testAccount("a", "a"))
		assert.False(t, save.Success)
		assert.Nil(t, save.Data)
		assert.Equal(t, "Failed to create store: permission denied", save.ErrorMessage())

		list := repo.List(ctx)
		assert.False(t, list.Success)
		assert.Equal(t, "Failed to create store: permission denied", list.ErrorMessage())

		del := repo.Delete(ctx, "a")
		assert.Equal(t, "Failed to create store: permission denied", del.ErrorMessage())
	})

	t.Run("save failure", func(t *testing.T) {
		opener := docstore.NewMockOpener()
		opener.SaveErr = errors.New("disk full")
		repo := NewRepository(opener, logr.Discard())

		save := repo.Save(ctx, testAccount("a", "a"))
		assert.False(t, save.Success)
		assert.Equal(t, "Failed to save store: disk full", save.ErrorMessage())

		del := repo.Delete(ctx, "a")
		assert.Equal(t, "Failed to save store: disk full", del.ErrorMessage())
	})
}

func TestRepository_Get(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	ctx := context.Background()
	require.True(t, repo.Save(ctx, testAccount("a", "Home")).Success)

	p, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Home", p.Name)

	_, err = repo.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestRepository_Activate(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	ctx := context.Background()

	first := testAccount("a", "a")
	first.IsActive = true
	require.True(t, repo.Save(ctx, first).Success)
	require.True(t, repo.Save(ctx, testAccount("b", "b")).Success)

	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, repo.Activate(ctx, "b", now))

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "b")
	require.NoError(t, err)

	assert.False(t, a.IsActive)
	assert.True(t, b.IsActive)
	require.NotNil(t, b.LastUsed)
	assert.Equal(t, "2024-05-06T07:08:09Z", *b.LastUsed)
	assert.Nil(t, a.LastUsed)

	err = repo.Activate(ctx, "missing", now)
	assert.True(t, IsNotFound(err))

	// A failed activation leaves the previous state untouched.
	b, err = repo.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, b.IsActive)
}

func TestRepository_CancelledContext(t *testing.T) {
	repo := NewRepository(docstore.NewMockOpener(), logr.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := repo.Save(ctx, testAccount("a", "a"))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage(), "context canceled")
}

func TestRepository_ConcurrentSavesDoNotLoseUpdates(t *testing.T) {
	repo := NewRepository(docstore.NewFileOpener(t.TempDir(), logr.Discard()), logr.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := repo.Save(ctx, testAccount(fmt.Sprintf("p%02d", i), "n"))
			assert.True(t, resp.Success, resp.ErrorMessage())
		}(i)
	}
	wg.Wait()

	assert.Len(t, listIDs(t, repo), 25)
}

func TestRepository_FileBackendPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo := NewRepository(docstore.NewFileOpener(dir, logr.Discard()), logr.Discard())
	p := testAccount("a", "Home")
	p.Config.PreferredFormat = xtream.StringPtr("m3u8")
	require.True(t, repo.Save(ctx, p).Success)

	data, err := os.ReadFile(filepath.Join(dir, StoreName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profiles"`)
	assert.Contains(t, string(data), `"preferredFormat": "m3u8"`)

	fresh := NewRepository(docstore.NewFileOpener(dir, logr.Discard()), logr.Discard())
	got, err := fresh.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestNewProfile(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := xtream.XtreamConfig{URL: "http://x", Username: "u", Password: "p"}

	a := NewProfile("Home", cfg, now)
	b := NewProfile("Home", cfg, now)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Regexp(t, `^profile_[0-9a-f-]{36}$`, a.ID)
	assert.Equal(t, "Home", a.Name)
	assert.Equal(t, cfg, a.Config)
	assert.Equal(t, "2024-01-02T03:04:05Z", a.CreatedAt)
	assert.False(t, a.IsActive)
	assert.Nil(t, a.LastUsed)
}

func TestRepository_SeparateProcessesShareFileStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ui := NewRepository(docstore.NewFileOpener(dir, logr.Discard()), logr.Discard())
	cli := NewRepository(docstore.NewFileOpener(dir, logr.Discard()), logr.Discard())

	assert.Empty(t, listIDs(t, ui))

	resp := cli.Save(ctx, testAccount("from-cli", "CLI"))
	require.True(t, resp.Success, resp.ErrorMessage())

	resp = ui.Save(ctx, testAccount("from-ui", "UI"))
	require.True(t, resp.Success, resp.ErrorMessage())

	fresh := NewRepository(docstore.NewFileOpener(dir, logr.Discard()), logr.Discard())
	assert.ElementsMatch(t, []string{"from-cli", "from-ui"}, listIDs(t, fresh))
}

func TestRepository_SeparateProcessesShareSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xtream-desk.db")
	ctx := context.Background()

	open := func() *Repository {
		opener, err := docstore.NewSQLiteOpener(path, logr.Discard())
		require.NoError(t, err)
		t.Cleanup(func() { _ = opener.Close() })
		return NewRepository(opener, logr.Discard())
	}
	ui, cli := open(), open()

	assert.Empty(t, listIDs(t, ui))
	require.True(t, cli.Save(ctx, testAccount("from-cli", "CLI")).Success)
	require.True(t, ui.Save(ctx, testAccount("from-ui", "UI")).Success)

	assert.ElementsMatch(t, []string{"from-cli", "from-ui"}, listIDs(t, open()))
}
