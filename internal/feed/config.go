package feed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one configured RSS feed.
type Source struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

// Config is the on-disk feed list.
type Config struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadConfig reads and validates a YAML feed list.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse feeds file: %w", err)
	}
	if len(cfg.Feeds) == 0 {
		return nil, fmt.Errorf("feeds file %s lists no feeds", path)
	}

	for i := range cfg.Feeds {
		feed := &cfg.Feeds[i]
		feed.Name = strings.TrimSpace(feed.Name)
		feed.URL = strings.TrimSpace(feed.URL)
		feed.Source = strings.TrimSpace(feed.Source)
		if feed.URL == "" {
			return nil, fmt.Errorf("feed %d has no url", i)
		}
		if feed.Source == "" {
			feed.Source = feed.Name
		}
		if feed.Source == "" {
			return nil, fmt.Errorf("feed %d has neither source nor name", i)
		}
	}
	return &cfg, nil
}
