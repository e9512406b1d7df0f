// Package service holds the link, category and tag use cases on top of storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smartlink/internal/analyzer"
	"smartlink/internal/domain"
	"smartlink/internal/enrichment"
	"smartlink/internal/scraper"
	"smartlink/internal/storage"
)

// Enricher fetches and analyzes a URL.
type Enricher interface {
	Enrich(ctx context.Context, url string) (*enrichment.Result, error)
}

// LinkService manages a user's links.
type LinkService struct {
	repo       storage.Repository
	enricher   Enricher
	categories *CategoryService
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewLinkService creates a LinkService.
func NewLinkService(repo storage.Repository, enricher Enricher, categories *CategoryService, logger logrus.FieldLogger) *LinkService {
	return &LinkService{
		repo:       repo,
		enricher:   enricher,
		categories: categories,
		log:        logger.WithField("component", "link_service"),
		now:        time.Now,
	}
}

// Apply resolves a form submission. linkID is ignored for a CreateRequest.
func (s *LinkService) Apply(ctx context.Context, userID, linkID string, req LinkRequest) (*domain.Link, error) {
	switch r := req.(type) {
	case CreateRequest:
		return s.Create(ctx, userID, r)
	case EditRequest:
		return s.Update(ctx, userID, linkID, r)
	default:
		return nil, fmt.Errorf("unsupported link request %T", req)
	}
}

// Create saves a link from user fields and an optional attached analysis.
// Page metadata defaults to what the hostname alone gives.
func (s *LinkService) Create(ctx context.Context, userID string, req CreateRequest) (*domain.Link, error) {
	req.Analysis = normalizeAnalysis(strings.TrimSpace(req.URL), req.Analysis)
	req = req.withAnalysis(req.Analysis)
	if err := req.validate(true); err != nil {
		return nil, err
	}
	if err := s.ensureNew(ctx, userID, req.URL); err != nil {
		return nil, err
	}

	page := scraper.HostnameDefaults(req.URL)
	return s.insert(ctx, userID, req, &page, req.Analysis, "")
}

// CreateWithEnrichment fetches and analyzes the URL, then saves the link.
// Any enrichment failure is recorded on the link as AnalysisError and the link
// is still created from the user's fields with hostname defaults.
func (s *LinkService) CreateWithEnrichment(ctx context.Context, userID string, req CreateRequest) (*domain.Link, error) {
	req = req.withAnalysis(nil)
	if err := checkVar("url", req.URL, "required,http_url"); err != nil {
		return nil, err
	}
	if err := s.ensureNew(ctx, userID, req.URL); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"user_id": userID, "url": req.URL})

	var (
		page        domain.PageData
		analysis    *domain.LinkAnalysis
		analysisErr string
	)
	res, err := s.enricher.Enrich(ctx, req.URL)
	if err != nil {
		log.WithError(err).Warn("Enrichment failed, saving without analysis")
		page = scraper.HostnameDefaults(req.URL)
		analysisErr = describeEnrichmentError(err)
	} else {
		page = *res.Page
		analysis = res.Analysis
	}

	req = req.withAnalysis(analysis)
	if req.Category == "" {
		req.Category = domain.DefaultCategory
	}
	if err := req.validate(false); err != nil {
		return nil, err
	}
	return s.insert(ctx, userID, req, &page, analysis, analysisErr)
}

func (s *LinkService) ensureNew(ctx context.Context, userID, url string) error {
	_, err := s.repo.FindLinkByURL(ctx, userID, url)
	switch {
	case err == nil:
		return ErrDuplicateURL
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check duplicate url: %w", err)
	}
}

func (s *LinkService) insert(ctx context.Context, userID string, req CreateRequest, page *domain.PageData, analysis *domain.LinkAnalysis, analysisErr string) (*domain.Link, error) {
	category, err := s.categories.Resolve(ctx, userID, req.Category)
	if err != nil {
		return nil, err
	}

	now := s.now()
	link := domain.Link{
		ID:                   uuid.NewString(),
		UserID:               userID,
		CategoryID:           category.ID,
		OriginalURL:          req.URL,
		OriginalTitle:        page.Title,
		AICategorySuggestion: req.Category,
		CustomTitle:          req.CustomTitle,
		CustomMemo:           req.CustomMemo,
		FaviconURL:           page.Favicon,
		OGImageURL:           page.OGImage,
		OGDescription:        page.Description,
		SiteName:             page.SiteName,
		AnalysisError:        analysisErr,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if page.IsVideo() {
		link.ContentType = domain.ContentTypeVideo
	}
	if analysis != nil {
		link.AITitle = analysis.Title
		link.AISummary = analysis.Summary
		link.AIKeywords = analysis.Keywords
		link.AICategorySuggestion = analysis.CategorySuggestion
		link.ContentType = analysis.ContentType
		link.IsAnalyzed = true
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDuplicateURL
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"link_id":     link.ID,
		"is_analyzed": link.IsAnalyzed,
		"category":    category.Name,
	}).Info("Link created")
	return &link, nil
}

// Update applies an EditRequest.
func (s *LinkService) Update(ctx context.Context, userID, linkID string, req EditRequest) (*domain.Link, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	link, err := s.repo.GetLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		if *req.CategoryID != "" {
			if _, err := s.repo.GetCategory(ctx, userID, *req.CategoryID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, invalid("category_id", "unknown category")
				}
				return nil, err
			}
		}
		link.CategoryID = *req.CategoryID
	}
	if req.CustomTitle != nil {
		link.CustomTitle = *req.CustomTitle
	}
	if req.CustomSummary != nil {
		link.CustomSummary = *req.CustomSummary
	}
	if req.CustomMemo != nil {
		link.CustomMemo = *req.CustomMemo
	}
	if req.IsFavorite != nil {
		link.IsFavorite = *req.IsFavorite
	}
	if req.IsArchived != nil {
		link.IsArchived = *req.IsArchived
	}

	return s.save(ctx, link)
}

// ToggleFavorite flips the favorite flag.
func (s *LinkService) ToggleFavorite(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	link, err := s.repo.GetLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	link.IsFavorite = !link.IsFavorite
	return s.save(ctx, link)
}

// ToggleArchive flips the archived flag.
func (s *LinkService) ToggleArchive(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	link, err := s.repo.GetLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	link.IsArchived = !link.IsArchived
	return s.save(ctx, link)
}

func (s *LinkService) save(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	if err := s.repo.UpdateLink(ctx, *link); err != nil {
		return nil, err
	}
	return s.repo.GetLink(ctx, link.UserID, link.ID)
}

// Delete removes a link.
func (s *LinkService) Delete(ctx context.Context, userID, linkID string) error {
	return s.repo.DeleteLink(ctx, userID, linkID)
}

// Get returns a single link.
func (s *LinkService) Get(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	return s.repo.GetLink(ctx, userID, linkID)
}

// List returns one page of the user's links.
func (s *LinkService) List(ctx context.Context, userID string, filter domain.LinkFilter, sort domain.LinkSort, page domain.Page) (*domain.LinkPage, error) {
	return s.repo.ListLinks(ctx, userID, filter, sort, page)
}

// IncrementView records a view of the link.
func (s *LinkService) IncrementView(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	return s.repo.IncrementViewCount(ctx, userID, linkID, s.now())
}

// normalizeAnalysis holds an attached analysis to the same guarantees as one
// produced by the analyzer: a title, an allowed category and a content type.
func normalizeAnalysis(url string, a *domain.LinkAnalysis) *domain.LinkAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	if out.Title = strings.TrimSpace(out.Title); out.Title == "" {
		out.Title = url
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	out.CategorySuggestion = analyzer.ReconcileCategory(strings.TrimSpace(out.CategorySuggestion), out.Keywords, out.Summary)
	if out.ContentType == "" {
		out.ContentType = domain.ContentTypeArticle
	}
	return &out
}

// describeEnrichmentError turns a pipeline failure into the notice stored on the link.
func describeEnrichmentError(err error) string {
	var fe *scraper.FetchError
	if errors.As(err, &fe) {
		return "page could not be fetched: " + fe.Reason
	}
	return "analysis failed: " + err.Error()
}
