package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 800
	DefaultTimeout   = 60 * time.Second
)

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Input is the cluster material a narrative is generated from.
type Input struct {
	Name    string
	Facts   []string
	Musings []string
	Sources []string
}

// Generator writes a short narrative article for a cluster. Without an API
// key, or when the completion fails, it falls back to a deterministic
// placeholder assembled from the cluster's facts and musings.
type Generator struct {
	client  openai.Client
	enabled bool
	logger  zerolog.Logger
	opts    Options
}

func NewGenerator(options Options, logger zerolog.Logger) *Generator {
	opts := normalizeOptions(options)
	generator := &Generator{
		logger: logger,
		opts:   opts,
	}
	if strings.TrimSpace(opts.APIKey) != "" {
		generator.client = openai.NewClient(option.WithAPIKey(opts.APIKey))
		generator.enabled = true
	}
	return generator
}

// Generate returns the narrative text and whether the language model
// produced it (false means placeholder).
func (g *Generator) Generate(ctx context.Context, input Input) (string, bool, error) {
	if g == nil {
		return "", false, fmt.Errorf("narrative generator is not initialized")
	}
	if !g.enabled {
		return Placeholder(input), false, nil
	}

	requestCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	completion, err := g.client.Chat.Completions.New(requestCtx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a news writer. Write a concise, neutral news article from the given verified facts. Do not invent facts."),
			openai.UserMessage(buildPrompt(input)),
		},
		Model:       openai.ChatModel(g.opts.Model),
		MaxTokens:   openai.Int(int64(g.opts.MaxTokens)),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("cluster_name", input.Name).Msg("narrative completion failed, using placeholder")
		return Placeholder(input), false, nil
	}
	if len(completion.Choices) == 0 {
		g.logger.Warn().Str("cluster_name", input.Name).Msg("narrative completion returned no choices, using placeholder")
		return Placeholder(input), false, nil
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return Placeholder(input), false, nil
	}
	return text, true, nil
}

func buildPrompt(input Input) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Topic: %s\n\nVerified facts:\n", input.Name)
	for _, fact := range input.Facts {
		fmt.Fprintf(&builder, "- %s\n", fact)
	}
	if len(input.Musings) > 0 {
		builder.WriteString("\nCommentary and opinions (attribute as such):\n")
		for _, musing := range input.Musings {
			fmt.Fprintf(&builder, "- %s\n", musing)
		}
	}
	if len(input.Sources) > 0 {
		fmt.Fprintf(&builder, "\nSources: %s\n", strings.Join(input.Sources, ", "))
	}
	builder.WriteString("\nWrite three to five paragraphs.")
	return builder.String()
}

// Placeholder composes a readable article without a language model. The same
// input always yields the same text.
func Placeholder(input Input) string {
	var builder strings.Builder

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Latest News"
	}
	fmt.Fprintf(&builder, "%s\n\n", name)

	if len(input.Facts) > 0 {
		fmt.Fprintf(&builder, "%s ", input.Facts[0])
		if len(input.Facts) > 1 {
			builder.WriteString("Further reporting adds the following:\n\n")
			for _, fact := range input.Facts[1:] {
				fmt.Fprintf(&builder, "- %s\n", fact)
			}
		}
		builder.WriteString("\n")
	} else {
		builder.WriteString("Coverage of this story is developing.\n\n")
	}

	if len(input.Musings) > 0 {
		builder.WriteString("Observers have offered their own perspectives:\n\n")
		for _, musing := range input.Musings {
			fmt.Fprintf(&builder, "- %s\n", musing)
		}
	}

	return strings.TrimSpace(builder.String())
}

func normalizeOptions(opts Options) Options {
	normalized := opts
	if strings.TrimSpace(normalized.Model) == "" {
		normalized.Model = DefaultModel
	}
	if normalized.MaxTokens <= 0 {
		normalized.MaxTokens = DefaultMaxTokens
	}
	if normalized.Timeout <= 0 {
		normalized.Timeout = DefaultTimeout
	}
	return normalized
}
