package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{"tracks":{"items":[
  {"id":"t1","name":"Bohemian Rhapsody","popularity":88,
   "artists":[{"name":"Queen"}],
   "album":{"name":"A Night at the Opera","images":[{"url":"https://img/large"},{"url":"https://img/small"}]},
   "external_urls":{"spotify":"https://open.spotify.com/track/t1"}},
  {"id":"t2","name":"Under Pressure","popularity":80,
   "artists":[{"name":"Queen"},{"name":"David Bowie"}],
   "album":{"name":"Hot Space","images":[]},
   "external_urls":{}},
  {"id":"","name":"broken"}
]}}`

func newSpotifyServer(t *testing.T, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			http.Error(w, "bad client", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-token" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("type") != "track" || q.Get("market") != "US" || q.Get("limit") != "6" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if q.Get("q") == "fail" {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, searchBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchTracks(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newSpotifyServer(t, &tokenCalls)
	client := NewClient(context.Background(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/api/token",
		BaseURL:      srv.URL + "/v1",
	})

	tracks, err := client.SearchTracks(context.Background(), "rock anthems", 6)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "Queen", tracks[0].Artist)
	assert.Equal(t, "https://img/large", tracks[0].AlbumArt)
	assert.Equal(t, "https://open.spotify.com/track/t1", tracks[0].ExternalURL)
	assert.Equal(t, 88, tracks[0].Popularity)
	assert.Equal(t, "Queen, David Bowie", tracks[1].Artist)
	assert.Equal(t, []string{"Queen", "David Bowie"}, tracks[1].Artists)
	assert.Empty(t, tracks[1].AlbumArt)
	assert.Empty(t, tracks[0].Genre)

	_, err = client.SearchTracks(context.Background(), "pop classics", 6)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenCalls.Load(), "app token must be reused")
}

func TestSearchTracksErrorStatus(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newSpotifyServer(t, &tokenCalls)
	client := NewClient(context.Background(), Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/api/token",
		BaseURL:      srv.URL + "/v1",
	})

	_, err := client.SearchTracks(context.Background(), "fail", 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
