package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/hannahwhyatt/civic-data-server/internal/ckan"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxListedResources bounds the resource list in dataset metadata so
// very large datasets stay readable.
const maxListedResources = 20

type datasetInfoParams struct {
	DatasetName string `json:"dataset_name" jsonschema:"The name of the dataset to get the metadata for."`
}

func (h *handler) datasetInfoHandler(ctx context.Context, req *mcp.CallToolRequest, params datasetInfoParams) (*mcp.CallToolResult, any, error) {
	if params.DatasetName == "" {
		return errorResult("dataset_name is required")
	}

	// package_show wants an exact ID; resolve the name through a search
	// first so loose titles still work.
	search, err := h.catalog.SearchDatasets(ctx, params.DatasetName)
	if err != nil {
		return errorResult(fmt.Sprintf("Error retrieving dataset metadata: %v", err))
	}
	if search.Count == 0 {
		return errorResult(fmt.Sprintf("No dataset found with name %q", params.DatasetName))
	}

	ds, err := h.catalog.ShowDataset(ctx, search.Results[0].ID)
	if err != nil {
		return errorResult(fmt.Sprintf("Error retrieving dataset metadata: %v", err))
	}

	return textResult(formatDatasetInfo(ds))
}

func formatDatasetInfo(d *ckan.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset title: %s\n", d.Title)
	fmt.Fprintf(&b, "Dataset id: %s\n", d.Name)
	if d.Notes != "" {
		fmt.Fprintf(&b, "Dataset notes: %s\n", d.Notes)
	}
	if d.URL != "" {
		fmt.Fprintf(&b, "Dataset url: %s\n", d.URL)
	}
	if d.Organization.Title != "" {
		fmt.Fprintf(&b, "Dataset organization: %s\n", d.Organization.Title)
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&b, "Dataset tags: %s\n", joinTags(d.Tags))
	}
	license := d.LicenseTitle
	if license == "" {
		license = "Not known"
	}
	fmt.Fprintf(&b, "Dataset license: %s\n", license)

	fmt.Fprintf(&b, "Dataset resources (files): %d\n", len(d.Resources))
	resources := d.Resources
	if len(resources) > maxListedResources {
		fmt.Fprintf(&b, "  (showing the first %d)\n", maxListedResources)
		resources = resources[:maxListedResources]
	}
	for _, r := range resources {
		fmt.Fprintf(&b, "  %s - %s - %s - %s\n", r.Name, r.ID, r.Format, r.URL)
	}
	return b.String()
}
