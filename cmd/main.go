package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
	cfgPkg "github.com/sudeepbogati7/threat-news-summarizer/pkg/config"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/fetcher"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/llm"
	loggerPkg "github.com/sudeepbogati7/threat-news-summarizer/pkg/logger"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/rag"
	"github.com/sudeepbogati7/threat-news-summarizer/pkg/store"
	"github.com/sudeepbogati7/threat-news-summarizer/server"
)

type Options struct {
	ConfigPath   string
	ArticlesPath string
	Serve        bool
	Fetch        bool
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Options {
	var opts Options

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&opts.ArticlesPath, "articles", "", "JSON file of articles to index")
	flag.BoolVar(&opts.Serve, "serve", false, "Run the HTTP server")
	flag.BoolVar(&opts.Fetch, "fetch", false, "Fetch a fresh article batch and rebuild the index")
	flag.Parse()

	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts Options) error {
	cfg, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	logger, err := loggerPkg.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.EmbedModel,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	var snapshots rag.Snapshotter
	if cfg.Database.URL != "" {
		snapshotStore, err := store.NewWithConfig(store.SnapshotStoreConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize snapshot store: %v", err)
		}
		defer snapshotStore.Close()
		snapshots = snapshotStore
	}

	engine, err := rag.NewWithConfig(rag.EngineConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
		TopK:         cfg.Retrieval.TopK,
	}, embedder, chatEngine, snapshots, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if err := engine.WarmStart(ctx); err != nil {
		color.Yellow("Could not restore index snapshot: %v\n", err)
	}

	if opts.ArticlesPath != "" {
		if err := ingestFile(ctx, engine, opts.ArticlesPath); err != nil {
			return err
		}
	}

	if opts.Fetch {
		if err := fetchAndRebuild(ctx, cfg, engine, logger); err != nil {
			return err
		}
	}

	if opts.Serve {
		return server.New(cfg.Server.Addr, engine, logger).ListenAndServe()
	}

	return chatLoop(ctx, engine)
}

func ingestFile(ctx context.Context, engine *rag.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read articles file: %v", err)
	}

	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return fmt.Errorf("failed to parse articles file: %v", err)
	}

	color.Blue("\nIndexing %d articles from %s\n", len(articles), path)

	spinner := getSpinner("Embedding and indexing articles...")
	stats, err := engine.Rebuild(ctx, articles)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return fmt.Errorf("failed to rebuild index: %v", err)
	}

	color.Green("✓ Indexed %d chunks from %d documents\n", stats.Chunks, stats.Documents)
	return nil
}

func fetchAndRebuild(ctx context.Context, cfg *cfgPkg.Config, engine *rag.Engine, logger *zap.Logger) error {
	var bar *progressbar.ProgressBar

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{
		APIKey:        cfg.NewsAPI.APIKey,
		BaseURL:       cfg.NewsAPI.BaseURL,
		Query:         cfg.NewsAPI.Query,
		PageSize:      cfg.NewsAPI.PageSize,
		RateLimit:     cfg.NewsAPI.RateLimit,
		EnrichContent: cfg.NewsAPI.EnrichContent,
		OnProgress: func(url string) {
			if bar != nil {
				bar.Add(1)
			}
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %v", err)
	}

	spinner := getSpinner("Fetching articles...")
	articles, err := f.Fetch(ctx)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return fmt.Errorf("failed to fetch articles: %v", err)
	}
	color.Green("✓ Fetched %d articles\n", len(articles))

	if cfg.NewsAPI.EnrichContent {
		bar = getProgressBar(len(articles), "Enriching article content...")
		articles = f.Enrich(ctx, articles)
		bar.Finish()
		fmt.Print("\n")
	}

	spinner = getSpinner("Embedding and indexing articles...")
	stats, err := engine.Rebuild(ctx, articles)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return fmt.Errorf("failed to rebuild index: %v", err)
	}

	color.Green("✓ Indexed %d chunks from %d documents\n", stats.Chunks, stats.Documents)
	return nil
}

func chatLoop(ctx context.Context, engine *rag.Engine) error {
	color.Cyan("\nChat with the indexed news articles (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := scanner.Text()
		if strings.ToLower(strings.TrimSpace(query)) == "exit" {
			break
		}

		spinner := getSpinner("Searching articles...")
		answer, err := engine.Answer(ctx, query)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("Assistant: %s\n", answer.Text)
		for _, source := range answer.Sources {
			color.Blue("  source: %s", source)
		}
	}

	return nil
}
