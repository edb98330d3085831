package deezer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("limit"))
		switch q.Get("q") {
		case "Hey Jude The Beatles":
			fmt.Fprint(w, `{"data":[{"preview":""},{"preview":"https://cdn/hey-jude.mp3"},{"preview":"https://cdn/other.mp3"}]}`)
		case "Silence Nobody":
			fmt.Fprint(w, `{"data":[{"preview":""}]}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	preview, err := client.LookupPreview(context.Background(), "Hey Jude", "The Beatles")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/hey-jude.mp3", preview)

	_, err = client.LookupPreview(context.Background(), "Silence", "Nobody")
	assert.ErrorIs(t, err, ErrNoPreview)

	_, err = client.LookupPreview(context.Background(), "Broken", "Server")
	assert.Error(t, err)
}

func TestLookupPreviewTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond).LookupPreview(context.Background(), "a", "b")
	assert.Error(t, err)
}
