// Package goalsource queries the firm's document-search service for
// supplemental goal definitions (firm playbooks may require extra data
// points beyond the built-in registry).
package goalsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casefront/engage/internal/domain"
)

// Client is an HTTP client for the document-search collaborator. It is
// strictly optional: every failure mode means "no supplemental goals",
// decided by the caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Goals []domain.GoalDefinition `json:"goals"`
}

// SupplementalGoals asks the document-search service for extra goal
// definitions for a matter category.
func (c *Client) SupplementalGoals(ctx context.Context, category domain.MatterCategory) ([]domain.GoalDefinition, error) {
	endpoint := c.baseURL + "/v1/intake-goals?category=" + url.QueryEscape(string(category))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("goalsource.Client.SupplementalGoals: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("goalsource.Client.SupplementalGoals: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("goalsource.Client.SupplementalGoals: status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("goalsource.Client.SupplementalGoals: decode: %w", err)
	}

	// A playbook goal without a priority never gates the handoff.
	for i := range parsed.Goals {
		if parsed.Goals[i].Priority == "" {
			parsed.Goals[i].Priority = domain.GoalPriorityOptional
		}
	}

	return parsed.Goals, nil
}
