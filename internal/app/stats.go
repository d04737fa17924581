package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/infact/internal/cli"
	"horse.fit/infact/internal/globaltime"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timelineDays := fs.Int("timeline", 0, "Also print a creation timeline for the last N days")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.QueryStoreStats(ctx, globaltime.UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query store stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		payload := map[string]any{"stats": stats}
		if *timelineDays > 0 {
			timeline, err := pool.QueryClusterTimeline(ctx, globaltime.UTC(), *timelineDays)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to query timeline: %v\n", err)
				return 1
			}
			payload["timeline"] = timeline
		}
		if err := printJSON(payload); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	totalsRows := [][]string{
		{"total_clusters", fmt.Sprintf("%d", stats.TotalClusters)},
		{"total_articles", fmt.Sprintf("%d", stats.TotalArticles)},
		{"clusters_created_24h", fmt.Sprintf("%d", stats.ClustersCreated24h)},
		{"clusters_updated_24h", fmt.Sprintf("%d", stats.ClustersUpdated24h)},
		{"avg_articles_per_cluster", fmt.Sprintf("%.2f", stats.AvgArticlesPerCluster)},
	}
	if err := writeTable([]string{"metric", "value"}, totalsRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render stats table: %v\n", err)
		return 1
	}

	if len(stats.TopSources) > 0 {
		fmt.Println()
		sourceRows := make([][]string, 0, len(stats.TopSources))
		for _, source := range stats.TopSources {
			sourceRows = append(sourceRows, []string{
				truncateForTable(source.Source, 40),
				fmt.Sprintf("%d", source.Articles),
			})
		}
		if err := writeTable([]string{"source", "articles"}, sourceRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render source table: %v\n", err)
			return 1
		}
	}

	if *timelineDays > 0 {
		timeline, err := pool.QueryClusterTimeline(ctx, globaltime.UTC(), *timelineDays)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to query timeline: %v\n", err)
			return 1
		}
		fmt.Println()
		timelineRows := make([][]string, 0, len(timeline))
		for _, day := range timeline {
			timelineRows = append(timelineRows, []string{day.Day, fmt.Sprintf("%d", day.Clusters)})
		}
		if err := writeTable([]string{"day", "clusters"}, timelineRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render timeline table: %v\n", err)
			return 1
		}
	}

	return 0
}
