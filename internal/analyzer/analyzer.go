package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"smartlink/internal/config"
	"smartlink/internal/domain"
)

const (
	// DefaultModel is the lower-cost model variant used for link analysis.
	DefaultModel = "gpt-4o-mini"
	// MaxCompletionTokens bounds the model's output.
	MaxCompletionTokens = 500
)

// Analyzer turns page data into a validated LinkAnalysis through a chat completion.
// It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	completer Completer
	model     string
	log       logrus.FieldLogger
}

// New creates an Analyzer. An empty model selects DefaultModel.
func New(completer Completer, model string, logger logrus.FieldLogger) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{
		completer: completer,
		model:     model,
		log:       logger.WithField("component", "analyzer"),
	}
}

// AnalyzePage analyzes a URL using fetched page data.
// A page carrying video info always yields ContentType "video".
func (a *Analyzer) AnalyzePage(ctx context.Context, url string, page *domain.PageData) (*domain.LinkAnalysis, error) {
	if page == nil {
		return a.AnalyzeURL(ctx, url)
	}
	return a.run(ctx, url, pageMessage(page), page.IsVideo())
}

// AnalyzeContent analyzes a URL using caller-supplied raw text.
func (a *Analyzer) AnalyzeContent(ctx context.Context, url, content string) (*domain.LinkAnalysis, error) {
	return a.run(ctx, url, rawContentMessage(url, content), false)
}

// AnalyzeURL analyzes a URL with nothing but the URL itself.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string) (*domain.LinkAnalysis, error) {
	return a.run(ctx, url, urlOnlyMessage(url), false)
}

func (a *Analyzer) run(ctx context.Context, url, userMessage string, isVideo bool) (*domain.LinkAnalysis, error) {
	log := a.log.WithFields(logrus.Fields{"url": url, "model": a.model})
	start := time.Now()

	completion, err := a.completer.Complete(ctx, CompletionRequest{
		Model: a.model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userMessage},
		},
		MaxTokens: MaxCompletionTokens,
	})
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			log.WithError(err).Error("Completion client is not configured")
			return nil, err
		}
		log.WithError(err).Warn("Completion call failed")
		return nil, &AnalysisError{Kind: UpstreamError, Err: err}
	}

	log = log.WithFields(logrus.Fields{
		"latency_ms":        time.Since(start).Milliseconds(),
		"prompt_tokens":     completion.PromptTokens,
		"completion_tokens": completion.CompletionTokens,
	})

	analysis, err := parseAnalysis(completion.Content, url, isVideo)
	if err != nil {
		log.WithError(err).WithField("response", completion.Content).Warn("Unusable model output")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"category":     analysis.CategorySuggestion,
		"content_type": analysis.ContentType,
	}).Info("Link analyzed")
	return analysis, nil
}
