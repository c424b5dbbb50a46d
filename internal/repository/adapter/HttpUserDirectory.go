package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	repository "guru-chat/internal/repository/port"
)

const defaultDirectoryTimeout = 5 * time.Second

// HTTPUserDirectory reads participant profiles from the association's directory service.
type HTTPUserDirectory struct {
	baseURL string
	client  *http.Client
}

var _ repository.UserDirectory = (*HTTPUserDirectory)(nil)

// NewHTTPUserDirectory builds a client for baseURL. A nil client gets a 5s timeout.
func NewHTTPUserDirectory(baseURL string, client *http.Client) (*HTTPUserDirectory, error) {
	if baseURL == "" {
		return nil, errors.New("directory: empty base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("directory: parse base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultDirectoryTimeout}
	}
	return &HTTPUserDirectory{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

type usersResponse struct {
	Users []repository.User `json:"users"`
}

func (d *HTTPUserDirectory) SearchUsers(ctx context.Context, query string) ([]repository.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return d.get(ctx, "/users/search", url.Values{"q": {query}})
}

func (d *HTTPUserDirectory) GetUsersByIDs(ctx context.Context, ids []string) ([]repository.User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	return d.get(ctx, "/users", url.Values{"ids": {strings.Join(ids, ",")}})
}

func (d *HTTPUserDirectory) get(ctx context.Context, path string, params url.Values) ([]repository.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("directory: %s: unexpected status %d", path, resp.StatusCode)
	}

	var body usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("directory: %s: decode: %w", path, err)
	}
	return body.Users, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
