package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/savstores/sav-invoices/internal/imports"
	"github.com/savstores/sav-invoices/internal/invoice"
	"github.com/savstores/sav-invoices/internal/layout"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}

	flags := ff.NewFlagSet("sav-invoices")
	var (
		port           = flags.IntLong("port", 8080, "HTTP server port")
		dbPath         = flags.StringLong("db", "sav-invoices.db", "Database file path")
		storagePath    = flags.StringLong("storage", "./invoices", "Storage directory path")
		loaderKind     = flags.StringLong("loader", "pdf", "PDF backend: 'pdf' (pure Go) or 'fitz' (MuPDF)")
		maxPages       = flags.IntLong("max-pages", 0, "Maximum pages read per document (0 = all)")
		retailerDomain = flags.StringLong("retailer-domain", "ici-store.com", "Comma-separated email domains ignored when looking for the client email")
		warrantyYears  = flags.IntLong("warranty-years", imports.DefaultWarrantyYears, "Warranty length in years")
		extractTimeout = flags.Duration('t', "extract-timeout", imports.DefaultExtractTimeout, "Maximum time spent extracting one document")
		authUser       = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		workers        = flags.IntLong("workers", 4, "Concurrent extractions in batch mode")
		showVersion    = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("SAV"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("Initializing PDF loader...", "loader", *loaderKind)
	loader, err := layout.NewLoader(*loaderKind, layout.LoaderConfig{MaxPages: *maxPages})
	if err != nil {
		slog.Error("Failed to initialize loader", "error", err)
		os.Exit(1)
	}
	defer loader.Close()

	engine := invoice.NewEngine(loader,
		invoice.WithRetailerDomains(splitList(*retailerDomain)...),
	)

	if paths := flags.GetArgs(); len(paths) > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runBatch(ctx, engine, paths, *workers, *extractTimeout); err != nil {
			slog.Error("Batch extraction failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := imports.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := imports.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	importService := imports.NewService(db, engine, store,
		imports.WithWarrantyYears(*warrantyYears),
		imports.WithExtractTimeout(*extractTimeout),
	)

	basicAuth := imports.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := imports.NewServer(importService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}

// batchResult is one JSON line of batch output
type batchResult struct {
	File string `json:"file"`
	invoice.Analysis
}

// runBatch extracts every path concurrently and prints the results in input order
func runBatch(ctx context.Context, engine *invoice.Engine, paths []string, workers int, timeout time.Duration) error {
	results := make([]batchResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			extractCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			results[i] = batchResult{File: path, Analysis: engine.Analyze(extractCtx, data)}
			slog.Info("Extracted invoice",
				"file", path,
				"template", results[i].Template,
				"fallback", results[i].Fallback,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
