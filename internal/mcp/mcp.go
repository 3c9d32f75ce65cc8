// Package mcp provides the civic-data MCP server, registering all
// tools and publishing model instructions.
package mcp

import (
	_ "embed"

	civicdata "github.com/hannahwhyatt/civic-data-server"
	"github.com/hannahwhyatt/civic-data-server/internal/ckan"
	"github.com/hannahwhyatt/civic-data-server/internal/pyrun"
	"github.com/hannahwhyatt/civic-data-server/internal/resource"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	runner  *pyrun.Runner
	catalog *ckan.Client
	fetcher *resource.Fetcher
}

// NewServer creates an MCP server with all civic-data tools registered.
func NewServer(runner *pyrun.Runner, catalog *ckan.Client, fetcher *resource.Fetcher) *mcp.Server {
	h := &handler{
		runner:  runner,
		catalog: catalog,
		fetcher: fetcher,
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "civic-data-server", Version: civicdata.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "search_datasets",
		Description: `Search for datasets (collections of files) using keywords.

Use this as your starting point for broad, thematic exploration when you want
to discover what data collections are available about a topic like 'housing'
or 'employment'. Returns a list of datasets with their IDs. An empty query
lists all available datasets.`,
	}, h.searchDatasetsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "search_resources",
		Description: `Search directly for individual files (resources) like CSVs or PDFs using keywords.

Use this as a shortcut when the user asks for a specific file, report, or data
format. Returns the resource name, format, URL, resource ID, and the ID of the
dataset it belongs to (package_id).`,
	}, h.searchResourcesHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "get_dataset_info",
		Description: `Retrieve complete metadata for a specific dataset by name.

Use this after search_datasets to see all the files within a dataset, or after
search_resources (using the package_id) to get more context about a specific
file. Lists every resource (file) with the resource IDs and formats required
to access content.`,
	}, h.datasetInfoHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "get_resource_content",
		Description: `Retrieve the content of a tabular (CSV) resource by its resource ID.

The content is cached on the server so follow-up analysis and run_python
scripts can read it. Always use this before attempting analysis to understand
the data structure.`,
	}, h.resourceContentHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "analyse_tabular_data",
		Description: `Perform automated analysis of a cached tabular resource.

Returns column names, inferred types, basic statistics, row count, missing
values, and cardinality as JSON. Use this after get_resource_content to
understand the data before writing custom analysis code.`,
	}, h.analyseTabularHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "run_python",
		Description: `Run Python code in a subprocess and return a structured result.

For data analysis: first use get_resource_content to fetch and cache a
resource, then construct the path to the cached file, e.g.

    import tempfile, os
    import pandas as pd
    path = os.path.join(tempfile.gettempdir(), "<resource_id>.csv")
    df = pd.read_csv(path)

Use matplotlib for visualization; figures are captured automatically, saved as
PNG images on the server, and returned as URLs.`,
	}, h.runPythonHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
