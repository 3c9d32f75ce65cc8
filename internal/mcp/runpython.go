package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hannahwhyatt/civic-data-server/internal/pyrun"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runPythonParams struct {
	Code           string `json:"code" jsonschema:"Python code to run."`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"Maximum time in seconds to allow execution. Default: 60."`
	CapturePlots   *bool  `json:"capture_plots,omitempty" jsonschema:"Collect matplotlib figures and return them with the result. Default: true."`
	SaveImages     *bool  `json:"save_images,omitempty" jsonschema:"Save captured figures as PNG files on the server and return URLs. Default: true."`
	ImagePath      string `json:"image_path,omitempty" jsonschema:"Directory to save images. Defaults to the server's public plot directory."`
	ReturnMarkdown *bool  `json:"return_markdown,omitempty" jsonschema:"Also return a ready-to-render markdown block combining stdout/stderr and figures. Default: true."`
	Debug          bool   `json:"debug,omitempty" jsonschema:"Emit extra diagnostic logs to stderr during execution."`
}

func (h *handler) runPythonHandler(ctx context.Context, req *mcp.CallToolRequest, params runPythonParams) (*mcp.CallToolResult, *pyrun.Result, error) {
	if params.Code == "" {
		res, _, _ := errorResult("code is required")
		return res, nil, nil
	}

	// MCP defaults: capture, save, and markdown are on unless disabled.
	boolOr := func(p *bool, def bool) bool {
		if p != nil {
			return *p
		}
		return def
	}

	result, err := h.runner.Run(ctx, pyrun.Request{
		Code:           params.Code,
		Timeout:        time.Duration(params.TimeoutSeconds) * time.Second,
		CapturePlots:   boolOr(params.CapturePlots, true),
		SaveImages:     boolOr(params.SaveImages, true),
		ImageDir:       params.ImagePath,
		ReturnMarkdown: boolOr(params.ReturnMarkdown, true),
		Debug:          params.Debug,
	})
	if err != nil {
		res, _, _ := errorResult(fmt.Sprintf("run_python failed: %v", err))
		return res, nil, nil
	}

	text := result.Markdown
	if text == "" {
		encoded, err := json.Marshal(result)
		if err != nil {
			res, _, _ := errorResult(fmt.Sprintf("encoding result: %v", err))
			return res, nil, nil
		}
		text = string(encoded)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, result, nil
}
