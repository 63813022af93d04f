// File: internal/content/posts.go
// Description: Fetches the text content the automation saves. The provider
// speaks the dummyjson-style posts API; failures surface plainly, they are
// never retried because stale content is worse than an honest failure.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Post is one unit of content to save.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// FormatBody renders the text exactly as it should appear in the saved file.
func (p Post) FormatBody() string {
	return fmt.Sprintf("Title: %s\n\n%s", p.Title, p.Body)
}

// FileName is the base name the post is saved under.
func (p Post) FileName() string {
	return fmt.Sprintf("post_%d.txt", p.ID)
}

// Provider fetches posts from the configured endpoint.
type Provider struct {
	url        string
	limit      int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewProvider builds a Provider from configuration.
func NewProvider(cfg config.ContentConfig, logger *zap.Logger) *Provider {
	return &Provider{
		url:        cfg.PostsURL,
		limit:      cfg.Limit,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("content"),
	}
}

type postsResponse struct {
	Posts []Post `json:"posts"`
}

// Fetch retrieves up to the configured number of posts.
func (p *Provider) Fetch(ctx context.Context) ([]Post, error) {
	url := fmt.Sprintf("%s?limit=%d", p.url, p.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("posts endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read posts response: %w", err)
	}

	var parsed postsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse posts response: %w", err)
	}

	p.logger.Info("Fetched posts", zap.Int("count", len(parsed.Posts)))
	return parsed.Posts, nil
}
