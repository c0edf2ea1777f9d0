package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/damacus/iron-transfer/internal/storage"
)

func readObject(t *testing.T, store storage.Store, key string) string {
	t.Helper()
	body, _, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(data)
}

func TestTransferJourney(t *testing.T) {
	store := storage.NewMemoryStore("files")
	e := newTestServer(store)
	b := newBrowser(t, e)

	// Step A: empty listing, session and CSRF cookies issued
	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files in this folder yet.")
	require.Contains(t, b.cookies, "csrf")
	require.Contains(t, b.cookies, "IronTransfer")

	// Step B: a new name is stored straight away
	rec = b.upload("a.txt", "v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
	assert.Equal(t, "v1", readObject(t, store, "uploads/a.txt"))

	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "Uploaded a.txt")
	assert.Contains(t, rec.Body.String(), "a.txt")

	// Step C: the same name asks for a decision and leaves the store alone
	rec = b.upload("a.txt", "v2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("HX-Redirect"))
	assert.Contains(t, rec.Body.String(), "A file named &#39;a.txt&#39; already exists in the bucket.")
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Equal(t, "v1", readObject(t, store, "uploads/a.txt"))

	// Step D: reloading keeps the banner up
	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "already exists in the bucket.")
	assert.Equal(t, "v1", readObject(t, store, "uploads/a.txt"))

	// Step E: cancel discards the staged bytes
	rec = b.post("/upload/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
	assert.Equal(t, "v1", readObject(t, store, "uploads/a.txt"))

	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "Upload cancelled.")
	assert.NotContains(t, rec.Body.String(), "already exists in the bucket.")

	// Step F: overwrite replaces the object
	rec = b.upload("a.txt", "v3")
	assert.Contains(t, rec.Body.String(), "already exists in the bucket.")
	rec = b.post("/upload/overwrite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v3", readObject(t, store, "uploads/a.txt"))

	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "Uploaded a.txt (overwritten)")
	assert.NotContains(t, rec.Body.String(), "already exists in the bucket.")

	// Step G: nothing left to decide
	rec = b.post("/upload/overwrite", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = b.post("/upload/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Step H: download
	rec = b.get("/download?key=" + url.QueryEscape("uploads/a.txt"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v3", rec.Body.String())
	assert.Equal(t, `attachment; filename="a.txt"; filename*=UTF-8''a.txt`, rec.Header().Get("Content-Disposition"))

	// Step I: delete
	rec = b.post("/delete", url.Values{"key": {"uploads/a.txt"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))

	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "Deleted a.txt")
	assert.Contains(t, rec.Body.String(), "No files in this folder yet.")

	rec = b.get("/download?key=uploads/a.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingUploadsArePerSession(t *testing.T) {
	store := storage.NewMemoryStore("files")
	require.NoError(t, store.Put(context.Background(), "uploads/a.txt", []byte("v1"), "text/plain"))
	e := newTestServer(store)

	alice := newBrowser(t, e)
	bob := newBrowser(t, e)
	alice.get("/")
	bob.get("/")

	rec := alice.upload("a.txt", "from alice")
	assert.Contains(t, rec.Body.String(), "already exists in the bucket.")

	rec = bob.get("/")
	assert.NotContains(t, rec.Body.String(), "already exists in the bucket.")
	rec = bob.post("/upload/overwrite", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = alice.post("/upload/overwrite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from alice", readObject(t, store, "uploads/a.txt"))
}

func TestJourneyRejectsKeysOutsideFolder(t *testing.T) {
	store := storage.NewMemoryStore("files")
	require.NoError(t, store.Put(context.Background(), "secrets/key.pem", []byte("x"), ""))
	b := newBrowser(t, newTestServer(store))
	b.get("/")

	rec := b.get("/download?key=secrets/key.pem")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.post("/delete", url.Values{"key": {"secrets/key.pem"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "x", readObject(t, store, "secrets/key.pem"))
}

func TestJourneyOverwriteFailureClearsPendingUpload(t *testing.T) {
	store := new(MockStore)
	store.On("Bucket").Return("files")
	store.On("List", mock.Anything, "uploads/").Return([]storage.ObjectRecord{
		{Key: "uploads/a.txt", Size: 2},
	}, nil)
	store.On("Put", mock.Anything, "uploads/a.txt", []byte("v2"), mock.Anything).
		Return(&storage.Error{Op: "put", Key: "uploads/a.txt", Err: errors.New("quota exceeded")})

	b := newBrowser(t, newTestServer(store))
	b.get("/")

	rec := b.upload("a.txt", "v2")
	assert.Contains(t, rec.Body.String(), "already exists in the bucket.")

	rec = b.post("/upload/overwrite", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "Error uploading file: storage put &#34;uploads/a.txt&#34;: quota exceeded")
	assert.NotContains(t, rec.Body.String(), "already exists in the bucket.")

	store.AssertNumberOfCalls(t, "Put", 1)
}

func TestJourneyListFailure(t *testing.T) {
	store := new(MockStore)
	store.On("Bucket").Return("files")
	store.On("List", mock.Anything, "uploads/").Return(nil, &storage.Error{Op: "list", Err: errors.New("connection refused")})

	b := newBrowser(t, newTestServer(store))

	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error listing files: storage list: connection refused")

	rec = b.upload("a.txt", "v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	rec = b.get("/")
	assert.NotContains(t, rec.Body.String(), "already exists in the bucket.")
}
