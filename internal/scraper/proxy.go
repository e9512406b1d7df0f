package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// ProxySource fetches raw HTML through a CORS-bypassing proxy that answers
// with a JSON envelope: {"contents": "<html>..."}.
type ProxySource struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	maxBody  int64
	log      logrus.FieldLogger
}

// NewProxySource creates a proxy-backed HTMLSource with the PageTimeout budget.
func NewProxySource(endpoint string, client *http.Client, logger logrus.FieldLogger) *ProxySource {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxySource{
		endpoint: endpoint,
		client:   client,
		timeout:  PageTimeout,
		maxBody:  MaxProxyBodyBytes,
		log:      logger.WithField("component", "proxy_source"),
	}
}

// SetTimeout overrides the per-fetch time budget.
func (p *ProxySource) SetTimeout(d time.Duration) {
	p.timeout = d
}

type proxyEnvelope struct {
	Contents string `json:"contents"`
}

// FetchHTML implements HTMLSource.
func (p *ProxySource) FetchHTML(ctx context.Context, target string) (string, error) {
	log := p.log.WithField("url", target)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withQuery(p.endpoint, url.Values{"url": {target}}), http.NoBody)
	if err != nil {
		return "", &FetchError{URL: target, Reason: "build proxy request", Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.WithError(err).Warn("Proxy fetch timed out")
			return "", &FetchError{URL: target, Reason: "timed out", Err: context.DeadlineExceeded}
		}
		return "", &FetchError{URL: target, Reason: "proxy request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: target, Reason: "proxy returned non-2xx", StatusCode: resp.StatusCode}
	}

	var env proxyEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, p.maxBody)).Decode(&env); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &FetchError{URL: target, Reason: "timed out", Err: context.DeadlineExceeded}
		}
		return "", &FetchError{URL: target, Reason: "decode proxy envelope", Err: err}
	}
	if env.Contents == "" {
		return "", &FetchError{URL: target, Reason: "empty page contents"}
	}

	log.WithField("bytes", len(env.Contents)).Debug("Fetched page through proxy")
	return env.Contents, nil
}
