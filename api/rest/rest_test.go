package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TuneSync/tune-sync-backend/internal/resolver"
	"github.com/TuneSync/tune-sync-backend/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	url string
	err error
}

func (s *stubResolver) Search(context.Context, string) ([]resolver.SearchResult, error) {
	return nil, nil
}

func (s *stubResolver) AudioURL(context.Context, string) (string, error) {
	return s.url, s.err
}

func setup(res resolver.Resolver) (*gin.Engine, *rooms.Store) {
	gin.SetMode(gin.TestMode)

	store := rooms.NewStore()
	r := gin.New()
	Register(r, store, res)
	return r, store
}

func TestCreateRoom(t *testing.T) {
	r, store := setup(&stubResolver{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/rooms", strings.NewReader(`{"roomCode":"ABC"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roomCode":"ABC"`)

	_, ok := store.Get("ABC")
	assert.True(t, ok)
}

func TestCreateRoomMissingCode(t *testing.T) {
	r, _ := setup(&stubResolver{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/rooms", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomSummary(t *testing.T) {
	r, store := setup(&stubResolver{})
	room := store.GetOrCreate("ABC")
	room.Join(rooms.Member{ID: "conn1", Name: "Ana"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/rooms/ABC", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exists":true`)
	assert.Contains(t, w.Body.String(), `"users":1`)
	assert.Contains(t, w.Body.String(), `"isPlaying":false`)
}

func TestRoomSummaryMissing(t *testing.T) {
	r, _ := setup(&stubResolver{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/rooms/nope", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"exists":false`)
}

func TestStreamRelaysAudio(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "audio/mp4")
		w.Write([]byte("audio-bytes"))
	}))
	defer upstream.Close()

	r, _ := setup(&stubResolver{url: upstream.URL})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/stream/abc", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "audio-bytes", w.Body.String())
}

func TestStreamSourceNotFound(t *testing.T) {
	r, _ := setup(&stubResolver{err: resolver.ErrNotFound})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/stream/abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamTransientResolutionFailure(t *testing.T) {
	r, _ := setup(&stubResolver{err: context.DeadlineExceeded})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/stream/abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealth(t *testing.T) {
	r, _ := setup(&stubResolver{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
