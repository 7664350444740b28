package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

type recorder struct {
	payloads chan models.SyncPayload
	calls    atomic.Int32
	// answer every action except sync_all with 500
	refuseEvents atomic.Bool
}

func newSyncServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()

	rec := &recorder{payloads: make(chan models.SyncPayload, 10)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path != "/api/bookmarks/sync" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"Invalid API key"}`))
			return
		}

		p := models.SyncPayload{}
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec.payloads <- p

		if rec.refuseEvents.Load() && p.Action != models.ActionSyncAll {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Database error","message":"Database operation failed"}`))
			return
		}

		resp := models.SyncResponse{Success: true, Message: "ok"}
		if p.Action == models.ActionSyncAll {
			resp.Stats = &models.SyncStats{Folders: len(p.Folders), Bookmarks: len(p.Bookmarks)}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestClientPush(t *testing.T) {
	srv, rec := newSyncServer(t)
	c := NewClient(srv.URL+"/api/bookmarks/", "secret", zaptest.NewLogger(t).Sugar())

	url := "https://go.dev"
	resp, err := c.Push(context.Background(), models.ActionCreate, models.BookmarkSyncData{ChromeID: "5", URL: &url})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message)

	got := <-rec.payloads
	assert.Equal(t, models.ActionCreate, got.Action)
	require.NotNil(t, got.Bookmark)
	assert.Equal(t, "5", got.Bookmark.ChromeID)
}

func TestClientRemoteError(t *testing.T) {
	srv, _ := newSyncServer(t)
	c := NewClient(srv.URL+"/api/bookmarks", "wrong", zaptest.NewLogger(t).Sugar())

	_, err := c.Push(context.Background(), models.ActionRemove, models.BookmarkSyncData{ChromeID: "5"})

	var remote *RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
	assert.Contains(t, remote.Body, "Invalid API key")
}

func TestClientWithoutKey(t *testing.T) {
	srv, rec := newSyncServer(t)
	c := NewClient(srv.URL+"/api/bookmarks", "", zaptest.NewLogger(t).Sugar())

	_, err := c.SyncAll(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Zero(t, rec.calls.Load())
}

func TestSyncerSyncFile(t *testing.T) {
	srv, rec := newSyncServer(t)
	l := zaptest.NewLogger(t).Sugar()
	s := NewSyncer(NewClient(srv.URL+"/api/bookmarks", "secret", l), writeFile(t, bookmarksFile), l)

	resp, err := s.SyncFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.SyncStats{Folders: 2, Bookmarks: 2}, resp.Stats)

	got := <-rec.payloads
	assert.Equal(t, models.ActionSyncAll, got.Action)
	assert.Len(t, got.Folders, 2)
	assert.Len(t, got.Bookmarks, 2)
}

func TestSyncerWatch(t *testing.T) {
	srv, rec := newSyncServer(t)
	l := zaptest.NewLogger(t).Sugar()
	path := writeFile(t, bookmarksFile)
	s := NewSyncer(NewClient(srv.URL+"/api/bookmarks", "secret", l), path, l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 50*time.Millisecond, false) }()

	// the watch is registered asynchronously; keep touching the file until a
	// sync arrives
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	var got models.SyncPayload
wait:
	for {
		select {
		case got = <-rec.payloads:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(bookmarksFile), 0o600))
		case <-deadline:
			t.Fatal("no sync after file change")
		}
	}
	assert.Equal(t, models.ActionSyncAll, got.Action)

	cancel()
	assert.NoError(t, <-done)
}

func TestSyncerSyncChanges(t *testing.T) {
	ctx := context.Background()
	srv, rec := newSyncServer(t)
	l := zaptest.NewLogger(t).Sugar()
	path := writeFile(t, bookmarksFile)
	s := NewSyncer(NewClient(srv.URL+"/api/bookmarks", "secret", l), path, l)

	// nothing synced yet: full sync
	n, err := s.SyncChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.ActionSyncAll, (<-rec.payloads).Action)

	edited := strings.NewReplacer(
		`"name": "Go",`, `"name": "Golang",`,
		`"id": "6"`, `"id": "8"`,
		`"name": "News"`, `"name": "Blog"`,
	).Replace(bookmarksFile)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o600))

	n, err = s.SyncChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	change := <-rec.payloads
	assert.Equal(t, models.ActionChange, change.Action)
	assert.Equal(t, "5", change.Bookmark.ChromeID)
	assert.Equal(t, "Golang", change.Bookmark.Title)

	create := <-rec.payloads
	assert.Equal(t, models.ActionCreate, create.Action)
	assert.Equal(t, "8", create.Bookmark.ChromeID)
	assert.Equal(t, "1", *create.Bookmark.ParentID)
	assert.Equal(t, 1, create.Bookmark.Position)

	remove := <-rec.payloads
	assert.Equal(t, models.ActionRemove, remove.Action)
	assert.Equal(t, "6", remove.Bookmark.ChromeID)

	calls := rec.calls.Load()
	n, err = s.SyncChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, calls, rec.calls.Load())
}

func TestSyncerSyncChangesFallsBackToFullSync(t *testing.T) {
	ctx := context.Background()
	srv, rec := newSyncServer(t)
	l := zaptest.NewLogger(t).Sugar()
	path := writeFile(t, bookmarksFile)
	s := NewSyncer(NewClient(srv.URL+"/api/bookmarks", "secret", l), path, l)

	_, err := s.SyncFile(ctx)
	require.NoError(t, err)
	<-rec.payloads

	rec.refuseEvents.Store(true)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(bookmarksFile, `"name": "Go",`, `"name": "Golang",`, 1)), 0o600))

	_, err = s.SyncChanges(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.ActionChange, (<-rec.payloads).Action)
	full := <-rec.payloads
	assert.Equal(t, models.ActionSyncAll, full.Action)
	assert.Len(t, full.Bookmarks, 2)
}

func TestDebouncerDropsStaleTick(t *testing.T) {
	d := newDebouncer(100 * time.Millisecond)
	defer d.Stop()

	d.Touch()
	// let the tick fire without receiving it
	time.Sleep(150 * time.Millisecond)
	d.Touch()

	select {
	case <-d.C():
		t.Fatal("tick before the quiet period ended")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("no tick after the quiet period")
	}
}
