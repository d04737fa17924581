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

func runCleanup(args []string) int {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	days := fs.Int("days", 0, "Retention window in days (default from RETENTION_DAYS)")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "cleanup does not accept positional arguments")
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	retentionDays := *days
	if retentionDays <= 0 {
		retentionDays = cfg.RetentionDays
	}

	now := globaltime.UTC()
	cutoff := now.AddDate(0, 0, -retentionDays)
	result, err := pool.DeleteClustersBefore(ctx, cutoff, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		return 1
	}

	fmt.Printf("deleted %d clusters older than %s, detached %d articles\n",
		result.Clusters, cutoff.Format("2006-01-02"), result.DetachedArticles)
	return 0
}
