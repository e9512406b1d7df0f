// Package enrichment sequences fetch, extraction and analysis for a single URL.
package enrichment

import (
	"context"

	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
	"smartlink/internal/scraper"
)

// PageAnalyzer is the analysis step.
type PageAnalyzer interface {
	AnalyzePage(ctx context.Context, url string, page *domain.PageData) (*domain.LinkAnalysis, error)
}

// Result carries the analysis together with the page it was derived from,
// so callers can persist favicon and og metadata alongside the AI fields.
type Result struct {
	Page     *domain.PageData
	Analysis *domain.LinkAnalysis
}

// Orchestrator runs Fetcher → Extractor → Analyzer. It holds no mutable state.
type Orchestrator struct {
	scraper  scraper.Scraper
	analyzer PageAnalyzer
	log      logrus.FieldLogger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(s scraper.Scraper, a PageAnalyzer, logger logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		scraper:  s,
		analyzer: a,
		log:      logger.WithField("component", "enrichment"),
	}
}

// Analyze fetches url and analyzes it, returning the first failure unchanged.
// A fetch failure means the analyzer is never called.
func (o *Orchestrator) Analyze(ctx context.Context, url string) (*domain.LinkAnalysis, error) {
	res, err := o.Enrich(ctx, url)
	if err != nil {
		return nil, err
	}
	return res.Analysis, nil
}

// Enrich is Analyze that also returns the fetched page.
func (o *Orchestrator) Enrich(ctx context.Context, url string) (*Result, error) {
	log := o.log.WithField("url", url)

	page, err := o.scraper.Fetch(ctx, url)
	if err != nil {
		log.WithError(err).Warn("Fetch failed, skipping analysis")
		return nil, err
	}

	analysis, err := o.analyzer.AnalyzePage(ctx, url, page)
	if err != nil {
		log.WithError(err).Warn("Analysis failed")
		return nil, err
	}

	return &Result{Page: page, Analysis: analysis}, nil
}
