package rules

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
)

// MaxRemoteSize bounds the body of a fetched rule file.
const MaxRemoteSize = 16 << 20

// HTTPOptions configure the client that fetches remote rule files.
type HTTPOptions struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		RetryMax:     3,
		RetryWaitMin: time.Second,
		RetryWaitMax: 5 * time.Second,
		Timeout:      30 * time.Second,
	}
}

// NewHTTPClient returns an *http.Client that retries connection errors,
// 429 and 5xx responses.
func NewHTTPClient(opts HTTPOptions) *http.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Timeout: opts.Timeout}
	client.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = slog.Default().With("component", "rules-fetch")
	return client.StandardClient()
}

// IsURL reports whether path names a remote rule file.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// FetchURL downloads and decodes a rule file. The format comes from the
// extension of the URL path.
func FetchURL(ctx context.Context, client *http.Client, rawURL string) (terminology.Definitions, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("parsing rules url: %w", err)
	}
	format, err := FormatOf(u.Path)
	if err != nil {
		return terminology.Definitions{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("building rules request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("fetching rules from %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return terminology.Definitions{}, fmt.Errorf("fetching rules from %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteSize+1))
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("reading rules from %s: %w", u.Redacted(), err)
	}
	if len(data) > MaxRemoteSize {
		return terminology.Definitions{}, fmt.Errorf("rules from %s exceed %d bytes", u.Redacted(), MaxRemoteSize)
	}
	defs, err := Parse(data, format)
	if err != nil {
		return terminology.Definitions{}, fmt.Errorf("parsing rules from %s: %w", u.Redacted(), err)
	}
	return defs, nil
}

// RemoteLoader is Loader for a URL, fetched with client.
func RemoteLoader(rawURL string, client *http.Client, overrides ...Override) func(context.Context) (terminology.Definitions, error) {
	return func(ctx context.Context) (terminology.Definitions, error) {
		defs, err := FetchURL(ctx, client, rawURL)
		if err != nil {
			return terminology.Definitions{}, err
		}
		apply(&defs, overrides)
		return defs, nil
	}
}
