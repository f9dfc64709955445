// Package httpstream downloads mirrored files as decoded byte streams.
package httpstream

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
	"github.com/JakeFAU/maven-tree-mirror/internal/metrics"
)

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent string
	// HeaderTimeout bounds the wait for response headers. Bodies may stream
	// for as long as the context allows.
	HeaderTimeout time.Duration
	Headers       map[string]string
}

// Waiter throttles outgoing requests.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher implements GetStream via the Go http.Client.
type Fetcher struct {
	client       *http.Client
	limiter      Waiter
	userAgent    string
	extraHeaders map[string]string
}

// New constructs a stream fetcher. limiter may be nil.
func New(opts Options, limiter Waiter) *Fetcher {
	if opts.HeaderTimeout <= 0 {
		opts.HeaderTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.HeaderTimeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Fetcher{
		client:       &http.Client{Transport: transport},
		limiter:      limiter,
		userAgent:    opts.UserAgent,
		extraHeaders: headers,
	}
}

// GetStream issues a GET for rawURL and returns the decoded body. Responses
// outside 2xx yield a *crawler.StatusError. Callers must close the stream.
func (f *Fetcher) GetStream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		metrics.ObserveFetch(rawURL, "error")
		return nil, fmt.Errorf("http fetch failed: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		metrics.ObserveFetch(rawURL, "error")
		return nil, &crawler.StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := decodeBody(resp)
	if err != nil {
		_ = resp.Body.Close()
		metrics.ObserveFetch(rawURL, "error")
		return nil, err
	}
	metrics.ObserveFetch(rawURL, "ok")
	return body, nil
}

// GetString reads the whole stream for rawURL as text.
func (f *Fetcher) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := f.GetStream(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(raw), nil
}

func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return &stackedReader{Reader: gz, closers: []io.Closer{gz, resp.Body}}, nil
	case "br":
		return &stackedReader{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	case "deflate":
		fl := flate.NewReader(resp.Body)
		return &stackedReader{Reader: fl, closers: []io.Closer{fl, resp.Body}}, nil
	default:
		return resp.Body, nil
	}
}

// stackedReader reads through a decoder and closes every layer, innermost first.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
