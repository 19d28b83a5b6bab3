// Package main is the Counsel CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/counselhq/counsel/internal/answer"
	"github.com/counselhq/counsel/internal/config"
	"github.com/counselhq/counsel/internal/embedding"
	"github.com/counselhq/counsel/internal/extract"
	"github.com/counselhq/counsel/internal/indexer"
	"github.com/counselhq/counsel/internal/llm"
	"github.com/counselhq/counsel/internal/memory"
	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/internal/server"
	"github.com/counselhq/counsel/internal/watcher"
	"github.com/counselhq/counsel/internal/websearch"
	"github.com/counselhq/counsel/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/counsel/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "counsel server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Credentials come from the environment; a .env in the working directory
	// is a development convenience, its absence is fine.
	_ = godotenv.Load()

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
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("counsel version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Build the index at startup. A missing or empty documents folder is not
	// fatal: the server comes up not-ready and a later rebuild can succeed.
	if status, err := components.Service.Rebuild(context.Background()); err != nil {
		logger.Warn("initial index build failed", zap.String("folder", cfg.Documents.Folder), zap.Error(err))
	} else {
		logger.Info("index built",
			zap.Int("documents", status.DocumentsLoaded),
			zap.Int("chunks", status.ChunksCreated))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Documents.WatchOrDefault() {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		svc := components.Service
		w := watcher.NewWatcher(cfg.Documents.Folder, cfg.Documents.Extensions, func() {
			if status, err := svc.Rebuild(context.Background()); err != nil {
				logger.Warn("index rebuild failed", zap.Error(err))
			} else {
				logger.Info("index rebuilt",
					zap.Int("documents", status.DocumentsLoaded),
					zap.Int("chunks", status.ChunksCreated))
			}
		}, watchOpts...)
		if err := w.Start(watchCtx); err != nil {
			logger.Warn("Failed to start watcher", zap.String("folder", cfg.Documents.Folder), zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := server.NewServer(components.Service, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the
// question to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
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

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8000", "server URL (empty = answer locally without a running server)")
	provider := fs.String("provider", "", "LLM provider: openai, groq, or gemini (default from config)")
	model := fs.String("model", "", "model name override")
	webSearch := fs.Bool("web", true, "augment the answer with web search")
	maxResults := fs.Int("max-results", 3, "maximum web search results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(askArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: counsel ask [flags] <question>")
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: counsel ask [flags] <question>")
		os.Exit(1)
	}

	req := models.AskRequest{
		Question:         question,
		Provider:         *provider,
		Model:            *model,
		UseWebSearch:     webSearch,
		MaxSearchResults: *maxResults,
	}

	var resp *models.Answer
	if *serverURL != "" {
		res, err := askViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		resp = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		ctx := context.Background()
		if _, err := components.Service.Rebuild(ctx); err != nil {
			logger.Warn("index build failed, answering without document context", zap.Error(err))
		}
		resp, err = components.Service.Ask(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(resp.Answer)
		fmt.Println()
		fmt.Printf("llm:     %s\n", resp.LLMUsed)
		if len(resp.SourcesUsed) > 0 {
			fmt.Printf("sources: %s\n", strings.Join(resp.SourcesUsed, ", "))
		}
		fmt.Printf("time:    %.2fs\n", resp.ProcessingTime)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req models.AskRequest) (*models.Answer, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Ready           bool      `json:"ready"`
	DocumentsLoaded int       `json:"documents_loaded"`
	ChunksCreated   int       `json:"chunks_created"`
	LastUpdated     time.Time `json:"last_updated"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("ready:             %t\n", status.Ready)
		fmt.Printf("documents_loaded:  %d\n", status.DocumentsLoaded)
		fmt.Printf("chunks_created:    %d\n", status.ChunksCreated)
		if !status.LastUpdated.IsZero() {
			fmt.Printf("last_updated:      %s\n", status.LastUpdated.Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Indexer   *indexer.Indexer
	WebSearch *websearch.Client
	Memory    *memory.ConversationMemory
	Service   *answer.Service
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	var embedder embedding.Embedder
	if apiKey := os.Getenv(cfg.Embedding.APIKeyEnv); apiKey != "" {
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     apiKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = e
	} else {
		logger.Warn("embedding API key not set, using hash embedder",
			zap.String("env", cfg.Embedding.APIKeyEnv))
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}

	idxOpts := []indexer.Option{}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(embedder, extract.NewExtractor(), cfg.Search.ChunkSize, cfg.Search.ChunkOverlap, idxOpts...)

	// Nil when the key is missing; the answer pipeline then skips the web stage.
	ws := websearch.NewClient(websearch.Config{
		BaseURL: cfg.WebSearch.BaseURL,
		APIKey:  os.Getenv(cfg.WebSearch.APIKeyEnv),
		Timeout: time.Duration(cfg.WebSearch.TimeoutSecs) * time.Second,
	}, logger)
	if ws == nil {
		logger.Warn("web search API key not set, web search disabled",
			zap.String("env", cfg.WebSearch.APIKeyEnv))
	}

	mem := memory.NewConversationMemory(memory.DefaultCapacity)

	svc := answer.NewService(idx, ws, mem, answer.Config{
		DocumentsFolder: cfg.Documents.Folder,
		TopK:            cfg.Search.TopK,
		DefaultProvider: cfg.LLM.DefaultProvider,
		EmbeddingModel:  cfg.Embedding.Model,
		LLMOptions: llm.Options{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		},
	}, answer.WithLogger(logger))

	return &Components{
		Embedder:  embedder,
		Indexer:   idx,
		WebSearch: ws,
		Memory:    mem,
		Service:   svc,
	}, nil
}

func printUsage() {
	fmt.Println(`counsel - Company law Q&A over your document folder

Usage:
  counsel server [flags]          Start the HTTP server
  counsel ask [flags] <question>  Ask a question
  counsel status [flags]          Show index status
  counsel version                 Show version
  counsel help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/counsel/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string       Config file path (for local mode)
  --server string       Server URL (default: http://localhost:8000). Use empty (--server "") to answer locally.
  --provider string     LLM provider: openai, groq, or gemini (default from config)
  --model string        Model name override
  --web                 Augment with web search (default: true)
  --max-results int     Maximum web search results (default: 3)
  --output string       Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8000)
  --output string    Output format: text or json (default: text)

Examples:
  counsel server
  counsel ask "What is the minimum share capital for a private company?"
  counsel ask --provider openai --web=false "Who can call a general meeting?"
  counsel ask --output json "What are director duties?"
  counsel status`)
}
