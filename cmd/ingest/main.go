package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/graphloom/graphloom/config"
	"github.com/graphloom/graphloom/internal/util"
	"github.com/graphloom/graphloom/pkg/document"
	oai "github.com/graphloom/graphloom/pkg/extract/openai"
	"github.com/graphloom/graphloom/pkg/graph"
	"github.com/graphloom/graphloom/pkg/logger"
	"github.com/graphloom/graphloom/pkg/logger/console"
	"github.com/graphloom/graphloom/pkg/store"
	"github.com/graphloom/graphloom/pkg/store/jsonstore"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	inputPath := flag.String("input", "", "path to the text or markdown document to ingest")
	docID := flag.String("id", "", "document id (defaults to the input file name)")
	docType := flag.String("type", "", "document type hint: markdown, plain or other (defaults from the file extension)")
	flag.Parse()

	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.EnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	if *inputPath == "" {
		logger.Fatal("missing -input flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Could not load configuration", "err", err)
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		logger.Fatal("Could not read input document", "err", err)
	}

	id := *docID
	if id == "" {
		id = filepath.Base(*inputPath)
	}

	doc := &document.Document{
		ID:      id,
		Content: string(raw),
		Type:    resolveType(*docType, *inputPath),
	}

	client, err := graph.NewClient(graph.NewClientParams{
		MaxChunkSize:        cfg.Chunker.MaxSize,
		MaxChunkDepth:       cfg.Chunker.MaxDepth,
		WindowOverlap:       cfg.Chunker.Overlap,
		TokenLimit:          cfg.Strategy.TokenLimit,
		MinContentLength:    cfg.Strategy.MinContentLength,
		MaxCodeRatio:        cfg.Strategy.MaxCodeRatio,
		ParallelExtractions: cfg.Extraction.Parallel,
		MaxRetries:          cfg.Extraction.MaxRetries,
	})
	if err != nil {
		logger.Fatal("Could not create pipeline client", "err", err)
	}

	extractor, err := oai.NewClient(oai.NewClientParams{
		APIKey:  util.Env("OPENAI_API_KEY"),
		BaseURL: util.Env("OPENAI_BASE_URL"),
		Model:   cfg.Extraction.Model,
	})
	if err != nil {
		logger.Fatal("Could not create extractor", "err", err)
	}

	graphStore, err := jsonstore.Open(cfg.Store.Path)
	if err != nil {
		logger.Fatal("Could not open graph store", "err", err)
	}

	assembler, err := store.NewAssembler(ctx, graphStore)
	if err != nil {
		logger.Fatal("Could not load graph", "err", err)
	}

	res, err := client.ProcessDocument(ctx, doc, extractor, assembler)
	if err != nil {
		logger.Fatal("Ingestion failed", "err", err)
	}

	if res.Gated {
		logger.Info("Document gated, nothing extracted", "document", res.DocumentID, "reason", res.GateReason)
		return
	}

	failures := 0
	if res.Store != nil {
		failures = len(res.Store.Failures)
	}
	logger.Info(
		"Ingestion complete",
		"document", res.DocumentID,
		"strategy", res.Strategy.String(),
		"chunks", len(res.Chunks),
		"failed_chunks", len(res.FailedChunkIDs),
		"entities", res.EntityCount,
		"relationships", res.RelationCount,
		"store_failures", failures,
		"store_path", cfg.Store.Path,
	)
}

func resolveType(hint string, path string) document.Type {
	switch strings.ToLower(hint) {
	case "markdown":
		return document.TypeMarkdown
	case "plain":
		return document.TypePlain
	case "other":
		return document.TypeOther
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return document.TypeMarkdown
	case ".txt":
		return document.TypePlain
	default:
		return document.TypeOther
	}
}
