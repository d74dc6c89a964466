package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

// DefaultTimeout bounds every outbound call to an external source. A timed
// out call is an ordinary upstream failure, never a retry storm.
const DefaultTimeout = 5 * time.Second

const maxResponseBytes = 16 << 20 // 16 MiB

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// getJSON fetches path and decodes the body into out. A transport error maps
// to UpstreamUnavailable; a 2xx body that does not match the expected shape
// maps to InvalidUpstreamData.
func (c client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.ErrUpstreamUnavailable.WithInternal(
			fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.ErrInvalidUpstreamData.WithInternal(
			fmt.Errorf("GET %s: %w", path, err))
	}
	return nil
}

func (c client) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.ErrUpstreamUnavailable.WithInternal(
			fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode))
	}
	return nil
}

// fetchBytes retrieves a raw resource such as an attachment. Relative refs
// are resolved against the client base URL.
func (c client) fetchBytes(ctx context.Context, ref string) ([]byte, error) {
	target := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(ref, "/")
	}
	if _, err := url.Parse(target); err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.ErrUpstreamUnavailable.WithInternal(
			fmt.Errorf("GET %s: unexpected status %d", target, resp.StatusCode))
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
