// File: internal/content/posts_test.go
package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/config"
)

func newTestProvider(url string, limit int) *Provider {
	return NewProvider(config.ContentConfig{
		PostsURL: url,
		Limit:    limit,
		Timeout:  2 * time.Second,
	}, zap.NewNop())
}

func TestFetchParsesPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"posts": [
				{"id": 1, "title": "His mother had always taught him", "body": "not to judge"},
				{"id": 2, "title": "He was an expert", "body": "but not in a discipline"}
			],
			"total": 251, "skip": 0, "limit": 3
		}`))
	}))
	defer srv.Close()

	posts, err := newTestProvider(srv.URL, 3).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, 1, posts[0].ID)
	assert.Equal(t, "His mother had always taught him", posts[0].Title)
	assert.Equal(t, "not to judge", posts[0].Body)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 1).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"posts": [{`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 1).Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchUnreachableEndpoint(t *testing.T) {
	_, err := newTestProvider("http://127.0.0.1:1", 1).Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(srv.URL, 1).Fetch(ctx)
	assert.Error(t, err)
}

func TestFormatBody(t *testing.T) {
	p := Post{ID: 7, Title: "A title", Body: "The body text."}
	assert.Equal(t, "Title: A title\n\nThe body text.", p.FormatBody())
	assert.Equal(t, "post_7.txt", p.FileName())
}
