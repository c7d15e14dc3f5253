package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Options for a single HTTP check.
type Options struct {
	Insecure bool
	User     string
	Password string
}

// HTTPChecker issues GET requests and reports whether they succeeded.
type HTTPChecker interface {
	Get(ctx context.Context, url string, opts Options) error
}

// HTTP checks URLs with net/http.
type HTTP struct {
	client   *http.Client
	insecure *http.Client
}

// NewHTTP creates an HTTP checker with a default timeout.
func NewHTTP() *HTTP {
	return &HTTP{
		client: &http.Client{Timeout: 60 * time.Second},
		insecure: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Get sends a GET request. Transport errors and status codes of 400 and
// above are errors.
func (h *HTTP) Get(ctx context.Context, url string, opts Options) error {
	if url == "" {
		return fmt.Errorf("http: url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("http: failed to create request: %w", err)
	}
	if opts.User != "" {
		req.SetBasicAuth(opts.User, opts.Password)
	}

	client := h.client
	if opts.Insecure {
		client = h.insecure
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("http: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http: %d %s", resp.StatusCode, string(respBody))
	}
	return nil
}
