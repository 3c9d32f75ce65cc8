// Command civic-data-server exposes civic open-data tools over MCP:
// catalog search, tabular resource access, and sandboxed Python
// execution with plot capture.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	civicdata "github.com/hannahwhyatt/civic-data-server"
	"github.com/hannahwhyatt/civic-data-server/internal/ckan"
	"github.com/hannahwhyatt/civic-data-server/internal/config"
	civicmcp "github.com/hannahwhyatt/civic-data-server/internal/mcp"
	"github.com/hannahwhyatt/civic-data-server/internal/pyrun"
	"github.com/hannahwhyatt/civic-data-server/internal/resource"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("civic-data-server: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args)
	case "run":
		err = runMain(args)
	case "version":
		fmt.Println(civicdata.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "civic-data-server: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: civic-data-server <command> [flags]

Commands:
  mcp         Start the MCP server (stdio by default)
  run         Execute a Python script once and print the result
  version     Print the version
  help        Show this help

Use "civic-data-server <command> -h" for command-specific flags.`)
}

// deps is the wired object graph shared by the mcp and run commands.
type deps struct {
	cfg     *config.Config
	runner  *pyrun.Runner
	catalog *ckan.Client
	fetcher *resource.Fetcher
	index   *resource.Index
}

func (d *deps) close() {
	if d.index != nil {
		_ = d.index.Close()
	}
}

func wire() (*deps, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	runner := &pyrun.Runner{
		Executor: &pyrun.Executor{
			Python:    cfg.PythonBin(),
			Timeout:   cfg.Timeout(),
			MaxOutput: cfg.MaxOutputBytes(),
		},
		Public: pyrun.PublicDir{
			Dir:     cfg.PlotDirectory(),
			BaseURL: cfg.PublicBaseURL(),
			Route:   config.DefaultPlotRoute,
		},
		ImageDir: cfg.PlotDirectory(),
	}

	catalog := &ckan.Client{
		BaseURL: cfg.CKANBaseURL(),
		APIKey:  cfg.CKANAPIKey(),
	}

	fetcher := &resource.Fetcher{
		CKAN:     catalog,
		CacheDir: cfg.CacheDirectory(),
	}

	// The fetch index is an accelerator; the server runs without it.
	index, err := resource.OpenIndex(filepath.Join(cfg.CacheDirectory(), "resources.db"))
	if err != nil {
		log.Printf("resource index unavailable: %v", err)
	} else {
		fetcher.Index = index
	}

	return &deps{cfg: cfg, runner: runner, catalog: catalog, fetcher: fetcher, index: index}, nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(civicmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := wire()
	if err != nil {
		return err
	}
	defer d.close()

	server := civicmcp.NewServer(d.runner, d.catalog, d.fetcher)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr, d.cfg.PlotDirectory())
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr, plotDir string) error {
	mcpHandler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)

	// Persisted plots are served from the same route their public URLs
	// point at, so a single process works without a fronting web server.
	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}
	r.Handle(config.DefaultPlotRoute+"/*",
		http.StripPrefix(config.DefaultPlotRoute+"/", http.FileServer(http.Dir(plotDir))))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("file", "", "script file to execute (default: read from stdin)")
	timeout := fs.Duration("timeout", 0, "override configured timeout (e.g. 30s)")
	noCapture := fs.Bool("no-capture", false, "do not instrument the script for plot capture")
	noSave := fs.Bool("no-save", false, "keep captured plots inline instead of saving PNG files")
	imageDir := fs.String("image-dir", "", "directory to save plot images")
	markdown := fs.Bool("markdown", false, "print the rendered markdown document")
	jsonFlag := fs.Bool("json", false, "print the full result as JSON")
	debug := fs.Bool("debug", false, "enable verbose diagnostics in the child process")
	_ = fs.Parse(args)

	code, err := readScript(*file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := wire()
	if err != nil {
		return err
	}
	defer d.close()

	result, err := d.runner.Run(ctx, pyrun.Request{
		Code:           code,
		Timeout:        *timeout,
		CapturePlots:   !*noCapture,
		SaveImages:     !*noSave,
		ImageDir:       *imageDir,
		ReturnMarkdown: *markdown || *jsonFlag,
		Debug:          *debug,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	switch {
	case *jsonFlag:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	case *markdown:
		fmt.Println(result.Markdown)
	default:
		fmt.Print(formatRunCLI(result))
	}

	if result.ExitCode != 0 {
		os.Exit(1)
	}
	return nil
}

func readScript(file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading script: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading script from stdin: %w", err)
	}
	return string(data), nil
}

func formatRunCLI(result *pyrun.Result) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if result.Stdout != "" {
		w("%s", result.Stdout)
		if !strings.HasSuffix(result.Stdout, "\n") {
			w("\n")
		}
	}
	if result.Stderr != "" {
		w("--- stderr ---\n%s", result.Stderr)
		if !strings.HasSuffix(result.Stderr, "\n") {
			w("\n")
		}
	}

	if len(result.Plots) > 0 {
		w("\nPlots (%d):\n", len(result.Plots))
		for i, p := range result.Plots {
			title := p.Title
			if title == "" {
				title = fmt.Sprintf("Plot %d", i+1)
			}
			switch {
			case p.URL != "":
				w("  %s: %s\n", title, p.URL)
			case p.Data != "":
				w("  %s: inline (%d bytes)\n", title, len(p.Data))
			default:
				w("  %s: unavailable\n", title)
			}
		}
	}

	if result.ExitCode == pyrun.TimeoutExitCode {
		w("\ntimed out\n")
	} else if result.ExitCode != 0 {
		w("\nexit code %d\n", result.ExitCode)
	}

	return string(b)
}
