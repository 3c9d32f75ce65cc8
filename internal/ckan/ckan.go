// Package ckan is a minimal client for the CKAN action API: dataset
// (package) search, resource search, and metadata lookup. Only the
// fields this server consumes are modelled.
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one CKAN instance.
type Client struct {
	BaseURL    string       // API root, e.g. https://www.liverpoolcivicdata.com/api/3
	APIKey     string       // optional; sent as the Authorization header
	HTTPClient *http.Client // optional; a 30s-timeout client is used when nil
}

// Dataset is a CKAN package: a titled collection of resources.
type Dataset struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	Notes        string       `json:"notes"`
	URL          string       `json:"url"`
	LicenseTitle string       `json:"license_title"`
	Organization Organization `json:"organization"`
	Tags         []Tag        `json:"tags"`
	Resources    []Resource   `json:"resources"`
}

// Organization is the publishing body of a dataset.
type Organization struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Tag is a dataset keyword.
type Tag struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Resource is one file within a dataset.
type Resource struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Format    string `json:"format"`
	Mimetype  string `json:"mimetype"`
	URL       string `json:"url"`
	PackageID string `json:"package_id"`
}

// DatasetSearchResult is the payload of package_search.
type DatasetSearchResult struct {
	Count   int       `json:"count"`
	Results []Dataset `json:"results"`
}

// ResourceSearchResult is the payload of resource_search.
type ResourceSearchResult struct {
	Count   int        `json:"count"`
	Results []Resource `json:"results"`
}

// envelope is the uniform CKAN action response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// SearchDatasets runs a free-text package_search. An empty query lists
// all datasets.
func (c *Client) SearchDatasets(ctx context.Context, query string) (*DatasetSearchResult, error) {
	var out DatasetSearchResult
	if err := c.get(ctx, "package_search", url.Values{"q": {query}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchResources searches individual files by name, one
// resource_search call per query word. Per-word failures are skipped;
// results are deduplicated by resource ID in first-seen order.
func (c *Client) SearchResources(ctx context.Context, query string) (*ResourceSearchResult, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return &ResourceSearchResult{}, nil
	}

	merged := &ResourceSearchResult{}
	seen := make(map[string]bool)
	var lastErr error
	for _, word := range words {
		var out ResourceSearchResult
		if err := c.get(ctx, "resource_search", url.Values{"query": {"name:" + word}}, &out); err != nil {
			lastErr = err
			continue
		}
		for _, r := range out.Results {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			merged.Results = append(merged.Results, r)
		}
	}
	if len(merged.Results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	merged.Count = len(merged.Results)
	return merged, nil
}

// ShowDataset fetches full dataset metadata by ID or name
// (package_show accepts either).
func (c *Client) ShowDataset(ctx context.Context, id string) (*Dataset, error) {
	var out Dataset
	if err := c.get(ctx, "package_show", url.Values{"id": {id}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ShowResource fetches resource metadata by ID, including the download
// URL.
func (c *Client) ShowResource(ctx context.Context, id string) (*Resource, error) {
	var out Resource
	if err := c.get(ctx, "resource_show", url.Values{"id": {id}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, action string, query url.Values, out any) error {
	u := strings.TrimSuffix(c.BaseURL, "/") + "/action/" + action
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", action, err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = defaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", action, resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}
	if !env.Success {
		return fmt.Errorf("%s failed: %s", action, strings.TrimSpace(string(env.Error)))
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", action, err)
	}
	return nil
}

var defaultClient = &http.Client{Timeout: 30 * time.Second}
