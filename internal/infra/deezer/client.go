package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.deezer.com"
	searchLimit    = "3"
)

// ErrNoPreview is returned when no search hit carries a preview clip.
var ErrNoPreview = errors.New("deezer: no preview found")

// Client looks up 30-second preview clips on the public Deezer search API.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type searchResponse struct {
	Data []struct {
		Preview string `json:"preview"`
	} `json:"data"`
}

// LookupPreview returns the first non-empty preview among the top hits for "name artist".
func (c *Client) LookupPreview(ctx context.Context, name, artist string) (string, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(name+" "+artist))
	params.Set("limit", searchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("deezer search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deezer search failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse deezer response: %w", err)
	}
	for _, item := range parsed.Data {
		if item.Preview != "" {
			return item.Preview, nil
		}
	}
	return "", ErrNoPreview
}
