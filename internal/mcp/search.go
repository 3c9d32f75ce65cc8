package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/hannahwhyatt/civic-data-server/internal/ckan"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type searchDatasetsParams struct {
	Query string `json:"query" jsonschema:"The query to search for datasets. Empty lists all datasets."`
}

func (h *handler) searchDatasetsHandler(ctx context.Context, req *mcp.CallToolRequest, params searchDatasetsParams) (*mcp.CallToolResult, any, error) {
	res, err := h.catalog.SearchDatasets(ctx, params.Query)
	if err != nil {
		return errorResult(fmt.Sprintf("Error retrieving dataset search results: %v", err))
	}
	if res.Count == 0 {
		return textResult("No datasets found.")
	}
	return textResult(formatDatasetSearch(res) + "\nEnd of results. Use ONLY the results that are relevant to the user's request.")
}

func formatDatasetSearch(res *ckan.DatasetSearchResult) string {
	var b strings.Builder
	for _, d := range res.Results {
		fmt.Fprintf(&b, "Dataset name: %s\n", d.Name)
		fmt.Fprintf(&b, "  Dataset title: %s\n", d.Title)
		if d.Notes != "" {
			fmt.Fprintf(&b, "  Dataset notes: %s\n", d.Notes)
		}
		if d.URL != "" {
			fmt.Fprintf(&b, "  Dataset url: %s\n", d.URL)
		}
		if d.Organization.Title != "" {
			fmt.Fprintf(&b, "  Dataset organization: %s\n", d.Organization.Title)
		}
		if len(d.Tags) > 0 {
			fmt.Fprintf(&b, "  Dataset tags: %s\n", joinTags(d.Tags))
		}
		b.WriteString("\n")
	}
	return b.String()
}

type searchResourcesParams struct {
	Query string `json:"query" jsonschema:"The query to search for resources (individual files)."`
}

func (h *handler) searchResourcesHandler(ctx context.Context, req *mcp.CallToolRequest, params searchResourcesParams) (*mcp.CallToolResult, any, error) {
	res, err := h.catalog.SearchResources(ctx, params.Query)
	if err != nil {
		return errorResult(fmt.Sprintf("Error retrieving resource search results: %v", err))
	}
	if res.Count == 0 {
		return textResult("No resources found.")
	}
	return textResult(formatResourceSearch(res))
}

func formatResourceSearch(res *ckan.ResourceSearchResult) string {
	var b strings.Builder
	for _, r := range res.Results {
		fmt.Fprintf(&b, "Resource name: %s\n", r.Name)
		fmt.Fprintf(&b, "  Resource format: %s\n", r.Format)
		if r.URL != "" {
			fmt.Fprintf(&b, "  Resource url: %s\n", r.URL)
		}
		fmt.Fprintf(&b, "  Resource id: %s\n", r.ID)
		if r.PackageID != "" {
			fmt.Fprintf(&b, "  Dataset id: %s\n", r.PackageID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func joinTags(tags []ckan.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		if t.DisplayName != "" {
			names[i] = t.DisplayName
		} else {
			names[i] = t.Name
		}
	}
	return strings.Join(names, ", ")
}
