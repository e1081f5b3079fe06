package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/types"
)

// UserAgent is sent with every request.
const UserAgent = "corpfetch"

// Page is one decoded page of search results.
type Page struct {
	Page       int
	TotalCount int
	TotalPages int
	StatusCode int
	Companies  []types.CompanyRecord
}

// PageSource fetches single result pages. *Fetcher is the production
// implementation.
type PageSource interface {
	FetchPage(ctx context.Context, q SearchQuery, page int) (*Page, error)
}

// Fetcher retrieves result pages over HTTP, retrying transient failures.
type Fetcher struct {
	client *http.Client
	retry  config.RetryConfig
	log    *logger.Logger
}

// NewFetcher creates a Fetcher from API configuration. A zero timeout
// leaves the HTTP client without one.
func NewFetcher(cfg config.APIConfig, log *logger.Logger) *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: cfg.Timeout()}, cfg.Retry, log)
}

// NewFetcherWithClient creates a Fetcher around an existing HTTP client.
func NewFetcherWithClient(client *http.Client, retry config.RetryConfig, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Fetcher{client: client, retry: retry, log: log}
}

type searchResponse struct {
	Results *struct {
		TotalCount int `json:"total_count"`
		TotalPages int `json:"total_pages"`
		Companies  []struct {
			Company map[string]interface{} `json:"company"`
		} `json:"companies"`
	} `json:"results"`
}

// FetchPage requests one page. A 403 yields an error matching ErrAuth and
// is never retried. Server, rate-limit and network failures are retried
// with exponential backoff up to the configured number of extra attempts.
func (f *Fetcher) FetchPage(ctx context.Context, q SearchQuery, page int) (*Page, error) {
	log := f.log.WithPage(page)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.retry.InitialInterval()
	if ceiling := f.retry.MaxInterval(); ceiling > 0 {
		bo.MaxInterval = ceiling
	}
	bo.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(bo, uint64(max(f.retry.MaxRetries, 0)))
	b = backoff.WithContext(b, ctx)

	operation := func() (*Page, error) {
		p, err := f.fetchOnce(ctx, q, page)
		if err == nil {
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		var fe *FetchError
		if errors.As(err, &fe) {
			errorsTotal.WithLabelValues(string(fe.Class)).Inc()
			if !shouldRetry(fe.Class) {
				return nil, backoff.Permanent(err)
			}
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		class := "unknown"
		var fe *FetchError
		if errors.As(err, &fe) {
			class = string(fe.Class)
		}
		retriesTotal.WithLabelValues(class).Inc()
		log.Warnw("Retrying page fetch after backoff",
			"error_class", class,
			"backoff", wait,
			"error", err)
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}

func (f *Fetcher) fetchOnce(ctx context.Context, q SearchQuery, page int) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.PageURL(page), nil)
	if err != nil {
		return nil, &FetchError{Page: page, Class: ClassClient, Message: "invalid request", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	f.log.Debugw("Requesting page", "page", page, "url", q.Redacted())

	start := time.Now()
	resp, err := f.client.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &FetchError{Page: page, Class: ClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{
			Page:       page,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body searchResponse
	if err := dec.Decode(&body); err != nil {
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: ClassDecode, Message: "invalid response body", Err: err}
	}
	if body.Results == nil {
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Class: ClassDecode, Message: "response has no results object"}
	}

	out := &Page{
		Page:       page,
		TotalCount: body.Results.TotalCount,
		TotalPages: body.Results.TotalPages,
		StatusCode: resp.StatusCode,
		Companies:  make([]types.CompanyRecord, 0, len(body.Results.Companies)),
	}
	for _, item := range body.Results.Companies {
		if item.Company == nil {
			continue
		}
		out.Companies = append(out.Companies, flattenCompany(item.Company))
	}
	return out, nil
}
