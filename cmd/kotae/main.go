// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	clientTimeout     = 2 * time.Minute
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded. The .env files next to
// that path and in the working directory are loaded into the environment.
func loadConfig(path string) (*config.Config, string, error) {
	resolved := path
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				resolved = fallback
			}
		}
	}
	if err := config.LoadEnv(resolved); err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "lookup":
		runLookup()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, chunks stored, provider timings)")
	ingest := fs.Bool("ingest", false, "ingest the configured document before serving")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if *ingest {
		if _, err := components.Indexer.Ingest(context.Background(), cfg.Document.Path); err != nil {
			logger.Fatal("Initial ingestion failed", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Generator,
		components.Indexer,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// reorderArgs moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "kotae ask who is Emma --output json"
// would otherwise leave --output unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args with spaces so multi-word questions work
// the same with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer in-process)")
	userName := fs.String("user", os.Getenv("USER"), "user name sent with the question")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	question := joinArgs(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	req := &models.AskRequest{Question: question, UserName: *userName}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid request: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var out *cli.AnswerOutput
	if *serverURL != "" {
		res, err := cli.NewClient(*serverURL, clientTimeout).Ask(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		out = &cli.AnswerOutput{Answer: res.Answer}
	} else {
		components, logger := localComponents(*configPath, true)
		defer logger.Sync()
		defer components.Close()
		a, err := components.Generator.Generate(ctx, req.Question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		out = &cli.AnswerOutput{Answer: a.Text(), Structured: a}
	}
	if err := cli.WriteAnswer(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = ingest in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	format := parseFormat(*outputFormat)

	ctx := context.Background()
	var res *models.IngestResponse
	if *serverURL != "" {
		if fs.NArg() > 0 {
			fmt.Fprintln(os.Stderr, "The server ingests its configured document; pass --server \"\" to ingest another file in-process.")
			os.Exit(1)
		}
		r, err := cli.NewClient(*serverURL, clientTimeout).InitDB(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
			os.Exit(1)
		}
		res = r
	} else {
		components, logger := localComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		path := components.Config.Document.Path
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		r, err := components.Indexer.Ingest(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
			os.Exit(1)
		}
		res = &models.IngestResponse{Message: "Database initialized successfully.", DocumentID: r.DocumentID, Chunks: r.Chunks}
	}
	if err := cli.WriteIngest(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	ctx := context.Background()
	var report *models.StatusReport
	if *serverURL != "" {
		r, err := cli.NewClient(*serverURL, clientTimeout).Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		report = r
	} else {
		components, logger := localComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		st, err := components.Store.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		cfg := components.Config
		kwPath := ""
		if cfg.Storage.KeywordEnabled() {
			kwPath = cfg.Storage.KeywordIndexPath
		}
		if n, err := storage.Footprint(cfg.Storage.DatabasePath, kwPath); err == nil {
			st.DiskUsageBytes = n
		}
		report = &models.StatusReport{
			Status: st,
			Config: map[string]interface{}{
				"document_path":      cfg.Document.Path,
				"database_path":      cfg.Storage.DatabasePath,
				"keyword_index_path": cfg.Storage.KeywordIndexPath,
			},
		}
	}
	if err := cli.WriteStatus(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runLookup() {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read storage directly)")
	limit := fs.Int("limit", 10, "maximum number of chunks")
	fuzzy := fs.Int("fuzzy", 0, "edit distance per term for typo tolerance (0, 1 or 2)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	q := &models.LookupQuery{Query: joinArgs(fs.Args()), Limit: *limit}
	if err := q.Validate(); err != nil {
		fmt.Println("Usage: kotae lookup [flags] <words>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	ctx := context.Background()
	var res *models.LookupResponse
	if *serverURL != "" {
		r, err := cli.NewClient(*serverURL, clientTimeout).Lookup(ctx, q, *fuzzy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
			os.Exit(1)
		}
		res = r
	} else {
		components, logger := localComponents(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		r, err := components.Store.Lookup(ctx, q, *fuzzy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
			os.Exit(1)
		}
		res = r
	}
	if err := cli.WriteLookup(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// writeDefaultConfig saves the built-in defaults to path, refusing to
// replace an existing file unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return config.Save(path, config.Default())
}

// localComponents loads config and builds the stack in-process, exiting on failure.
func localComponents(configPath string, withChat bool) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(context.Background(), cfg, logger, withChat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Store        *vectorstore.Store
	Indexer      *indexer.Indexer
	Generator    *answer.Generator
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires storage, the keyword index, the embedder, the
// vector store, the indexer and, when withChat is set, the answer generator.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withChat bool) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	var chat llm.ChatModel
	if withChat {
		chat, err = llm.New(cfg.Generation, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize chat model: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Config: cfg, Storage: store}

	if cfg.Storage.KeywordEnabled() {
		kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = kw
	}

	vs, err := vectorstore.Open(ctx, vectorstore.Options{
		Collection:     cfg.Collection.Name,
		EmbeddingModel: cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		Storage:        store,
		Embedder:       embedder,
		Keyword:        c.KeywordIndex,
		Logger:         utils.NewComponentLogger(logger, "vectorstore"),
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = vs
	c.Indexer = indexer.NewIndexer(vs, cfg.Chunking,
		indexer.WithLogger(utils.NewComponentLogger(logger, "indexer")))
	if chat != nil {
		c.Generator = answer.New(vs, chat,
			answer.WithConfig(cfg.Generation),
			answer.WithLogger(utils.NewComponentLogger(logger, "answer")))
	}
	return c, nil
}

func printUsage() {
	fmt.Println(`kotae - Question answering over a document with hosted models

Usage:
  kotae server [flags]             Start the HTTP server
  kotae ask [flags] <question>     Answer a question from the ingested document
  kotae ingest [flags] [file]      Ingest the configured document (or a file, in-process)
  kotae status [flags]             Show collection and storage status
  kotae lookup [flags] <words>     Keyword lookup over stored chunks
  kotae init [flags]               Write a default config file
  kotae version                    Show version
  kotae help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging
  --ingest           Ingest the configured document before serving

Client Flags (ask, ingest, status, lookup):
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --config string    Config file path (in-process mode)
  --output string    Output format: text or json (default: text)

Ask Flags:
  --user string      User name sent with the question (default: $USER)

Lookup Flags:
  --limit int        Maximum number of chunks (default: 10)
  --fuzzy int        Edit distance per term, 0 to 2 (default: 0)

Init Flags:
  --config string    File to write (default: config.yaml)
  --force            Overwrite an existing file

Examples:
  kotae server --ingest
  kotae ask who is Emma?
  kotae ask --output json "¿Quién es Emma?"
  kotae ingest
  kotae ingest --server "" ./documents/documento.docx
  kotae status --output json
  kotae lookup --fuzzy 1 enginer`)
	fmt.Printf("\nDocument formats for ingest: %s\n", strings.Join(extract.SupportedExtensions(), " "))
}
