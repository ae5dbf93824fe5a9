package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDecodesResults(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "lofi beats", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"abc","title":"Lofi Mix","thumbnail":"http://t/1.jpg","channel":"Chill","duration":"1:02:03"},
			{"id":"def","title":"More Lofi","thumbnail":"","channel":"","duration":"3:21"}
		]`))
	}))
	defer upstream.Close()

	res := NewHTTP(upstream.URL)
	results, err := res.Search(context.Background(), "lofi beats")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "abc", results[0].ID)
	assert.Equal(t, "Lofi Mix", results[0].Title)
}

func TestSearchUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	res := NewHTTP(upstream.URL)
	_, err := res.Search(context.Background(), "anything")

	require.Error(t, err)
	assert.False(t, Fatal(err))
}

func TestAudioURLResolves(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://cdn.example.com/audio/abc.m4a"}`))
	}))
	defer upstream.Close()

	res := NewHTTP(upstream.URL)
	url, err := res.AudioURL(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/audio/abc.m4a", url)
}

func TestAudioURLErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
		fatal  bool
	}{
		{"missing source", http.StatusNotFound, ErrNotFound, true},
		{"private source", http.StatusForbidden, ErrUnavailable, true},
		{"removed source", http.StatusGone, ErrUnavailable, true},
		{"upstream failure", http.StatusBadGateway, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer upstream.Close()

			res := NewHTTP(upstream.URL)
			_, err := res.AudioURL(context.Background(), "abc")

			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, tc.fatal, Fatal(err))
		})
	}
}

func TestAudioURLEmptyBodyIsNotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":""}`))
	}))
	defer upstream.Close()

	res := NewHTTP(upstream.URL)
	_, err := res.AudioURL(context.Background(), "abc")

	assert.ErrorIs(t, err, ErrNotFound)
}
