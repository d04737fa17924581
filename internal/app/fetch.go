package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/infact/internal/cli"
	"horse.fit/infact/internal/db"
	"horse.fit/infact/internal/feed"
	"horse.fit/infact/internal/logging"
	"horse.fit/infact/internal/pipeline"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	feedsFile := fs.String("feeds", "", "Path to the feeds YAML file (default from FEEDS_FILE)")
	maxItems := fs.Int("max-items", feed.DefaultMaxItemsPerFeed, "Maximum items to keep per feed")
	fetchBodies := fs.Bool("bodies", false, "Fetch full article bodies through the readability extractor")
	store := fs.Bool("store", false, "Persist clusters through the merge engine")
	forceNew := fs.Bool("force-new", false, "Skip merge matching and always create new clusters")
	dryRun := fs.Bool("dry-run", false, "Fetch and list articles without processing them")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatJSON, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, err := loadRuntimeConfig(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	feedsPath := *feedsFile
	if feedsPath == "" {
		feedsPath = cfg.FeedsFile
	}
	feedConfig, err := feed.LoadConfig(feedsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load feeds: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fetcher := feed.NewFetcher(feed.Options{
		Workers:         cfg.FeedFetchWorkers,
		Timeout:         cfg.FeedFetchTimeout,
		MaxItemsPerFeed: *maxItems,
		FetchBodies:     *fetchBodies,
	}, logger)

	articles, err := fetcher.FetchAll(ctx, feedConfig.Feeds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Feed fetch failed: %v\n", err)
		return 1
	}
	logger.Info().Int("articles", len(articles)).Int("feeds", len(feedConfig.Feeds)).Msg("feeds fetched")

	if *dryRun {
		return printFetchedArticles(articles, outputFormat)
	}

	if len(articles) < 2 {
		fmt.Fprintf(os.Stderr, "Not enough articles to process: got %d\n", len(articles))
		return 1
	}
	if max := cfg.MaxArticlesPerRequest; len(articles) > max {
		articles = articles[:max]
	}

	var pool *db.Pool
	if *store {
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()
	}

	service := buildPipelineService(cfg, pool, logger)
	result, err := service.ProcessBatch(ctx, pipeline.Request{
		Articles: articles,
		Store:    *store,
		ForceNew: *forceNew,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch processing failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}
	return printBatchSummary(result)
}

func printFetchedArticles(articles []pipeline.Article, outputFormat string) int {
	if outputFormat == outputFormatJSON {
		if err := printJSON(articles); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(articles))
	for _, article := range articles {
		published := ""
		if article.PublishedAt != nil {
			published = formatUTCTimestamp(*article.PublishedAt)
		}
		rows = append(rows, []string{
			truncateForTable(article.Title, 60),
			article.Source,
			article.Language,
			published,
		})
	}
	if err := writeTable([]string{"title", "source", "lang", "published_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render article table: %v\n", err)
		return 1
	}
	return 0
}
