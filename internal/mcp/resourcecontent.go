package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type resourceContentParams struct {
	ResourceID     string `json:"resource_id" jsonschema:"The ID of the resource to get the content for."`
	ResourceFormat string `json:"resource_format" jsonschema:"The format of the resource (CSV)."`
	PreviewOnly    *bool  `json:"preview_only,omitempty" jsonschema:"Return only the first 50 rows. Default: true."`
}

func (h *handler) resourceContentHandler(ctx context.Context, req *mcp.CallToolRequest, params resourceContentParams) (*mcp.CallToolResult, any, error) {
	if params.ResourceID == "" {
		return errorResult("resource_id is required")
	}
	format := params.ResourceFormat
	if format == "" {
		format = "csv"
	}
	preview := true
	if params.PreviewOnly != nil {
		preview = *params.PreviewOnly
	}

	content, err := h.fetcher.Content(ctx, params.ResourceID, format, preview)
	if err != nil {
		return errorResult(fmt.Sprintf("Error retrieving resource content: %v", err))
	}
	return textResult(content)
}

type analyseTabularParams struct {
	ResourceID string `json:"resource_id" jsonschema:"The ID of the tabular resource to analyse."`
}

func (h *handler) analyseTabularHandler(ctx context.Context, req *mcp.CallToolRequest, params analyseTabularParams) (*mcp.CallToolResult, any, error) {
	if params.ResourceID == "" {
		return errorResult("resource_id is required")
	}

	analysis, err := h.fetcher.Analyse(ctx, params.ResourceID)
	if err != nil {
		return errorResult(fmt.Sprintf("Error analysing resource: %v", err))
	}

	encoded, err := json.Marshal(analysis)
	if err != nil {
		return errorResult(fmt.Sprintf("Error encoding analysis: %v", err))
	}
	return textResult(string(encoded))
}
