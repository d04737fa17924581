package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/infact/internal/cli"
	"horse.fit/infact/internal/db"
	"horse.fit/infact/internal/logging"
	"horse.fit/infact/internal/pipeline"
	payloadschema "horse.fit/infact/schema"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Path to a JSON batch request file (- for stdin)")
	store := fs.Bool("store", false, "Persist clusters through the merge engine")
	forceNew := fs.Bool("force-new", false, "Skip merge matching and always create new clusters")
	numClusters := fs.Int("clusters", 0, "Requested cluster count (0 = automatic)")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatJSON, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	raw, err := readInputFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return 1
	}

	request, err := payloadschema.ValidateProcessRequest(json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid batch payload: %v\n", err)
		return 2
	}
	if *numClusters > 0 {
		request.NumClusters = *numClusters
	}
	if *store {
		request.Store = true
	}
	if *forceNew {
		request.ForceNew = true
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var pool *db.Pool
	if request.Store {
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()
	}

	service := buildPipelineService(cfg, pool, logger)
	result, err := service.ProcessBatch(ctx, *request)
	if err != nil {
		var validationErr *pipeline.ValidationError
		if errors.As(err, &validationErr) {
			for field, message := range validationErr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, message)
			}
			return 2
		}
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

func printBatchSummary(result *pipeline.Result) int {
	rows := make([][]string, 0, len(result.Clusters))
	for _, c := range result.Clusters {
		rows = append(rows, []string{
			truncateForTable(c.Name, 40),
			fmt.Sprintf("%d", c.ArticleCount),
			fmt.Sprintf("%d", len(c.Facts)),
			fmt.Sprintf("%d", len(c.Musings)),
		})
	}
	if err := writeTable([]string{"cluster", "articles", "facts", "musings"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render cluster table: %v\n", err)
		return 1
	}

	if len(result.Outcomes) > 0 {
		fmt.Println()
		outcomeRows := make([][]string, 0, len(result.Outcomes))
		for _, outcome := range result.Outcomes {
			detail := outcome.ClusterUUID
			if outcome.Error != "" {
				detail = outcome.Error
			}
			outcomeRows = append(outcomeRows, []string{
				truncateForTable(outcome.Name, 40),
				outcome.Action,
				truncateForTable(detail, 40),
			})
		}
		if err := writeTable([]string{"cluster", "action", "detail"}, outcomeRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render outcome table: %v\n", err)
			return 1
		}
	}

	fmt.Println()
	fmt.Printf("articles=%d clusters=%d provider=%s fallback=%t elapsed=%dms\n",
		result.Stats.ArticleCount,
		result.Stats.ClusterCount,
		result.Stats.EmbeddingProvider,
		result.Stats.FallbackClustering,
		result.Stats.ElapsedMS,
	)
	return 0
}

func readInputFile(path string) ([]byte, error) {
	if path == "-" {
		return os.ReadFile("/dev/stdin")
	}
	return os.ReadFile(path)
}
