package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RodSource implements HTMLSource with a headless browser, for pages that only
// produce their metadata after client-side rendering.
type RodSource struct {
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewRodSource creates a browser-backed HTMLSource with the PageTimeout budget.
func NewRodSource(logger logrus.FieldLogger) *RodSource {
	return &RodSource{
		log:     logger.WithField("component", "rod_source"),
		timeout: PageTimeout,
	}
}

// FetchHTML launches a browser, loads the page and returns the rendered document.
func (s *RodSource) FetchHTML(ctx context.Context, url string) (html string, err error) {
	log := s.log.WithField("url", url)
	log.Info("Rendering page in headless browser")

	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return "", &FetchError{URL: url, Reason: "browser executable not found"}
	}

	l := launcher.New().Bin(path)
	controlURL, err := l.Launch()
	if err != nil {
		return "", &FetchError{URL: url, Reason: "launch browser", Err: err}
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return "", &FetchError{URL: url, Reason: "connect to browser", Err: err}
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page, err := browser.Context(pageCtx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", s.pageError(pageCtx, url, "create page", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}()

	if err = page.WaitLoad(); err != nil {
		return "", s.pageError(pageCtx, url, "wait for page load", err)
	}

	html, err = page.HTML()
	if err != nil {
		return "", s.pageError(pageCtx, url, "read rendered html", err)
	}
	if html == "" {
		return "", &FetchError{URL: url, Reason: "empty page contents"}
	}

	log.WithField("bytes", len(html)).Info("Rendered page fetched")
	return html, nil
}

func (s *RodSource) pageError(pageCtx context.Context, url, step string, err error) error {
	if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
		s.log.WithField("url", url).WithError(err).Warn("Rendering timed out")
		return &FetchError{URL: url, Reason: "timed out", Err: context.DeadlineExceeded}
	}
	return &FetchError{URL: url, Reason: step, Err: fmt.Errorf("rod: %w", err)}
}
