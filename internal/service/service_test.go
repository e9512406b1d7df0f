package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"smartlink/internal/enrichment"
	"smartlink/internal/storage"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// stubEnricher returns a fixed result or error and counts calls.
type stubEnricher struct {
	result *enrichment.Result
	err    error
	calls  int
}

func (s *stubEnricher) Enrich(_ context.Context, _ string) (*enrichment.Result, error) {
	s.calls++
	return s.result, s.err
}

type fixture struct {
	repo       *storage.BadgerRepository
	enricher   *stubEnricher
	links      *LinkService
	categories *CategoryService
	tags       *TagService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := storage.NewInMemoryRepository(testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	enricher := &stubEnricher{}
	categories := NewCategoryService(repo, testLogger())
	return &fixture{
		repo:       repo,
		enricher:   enricher,
		links:      NewLinkService(repo, enricher, categories, testLogger()),
		categories: categories,
		tags:       NewTagService(repo, testLogger()),
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
