package uri

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tferrors "github.com/randalmurphal/trackflow/pkg/trackflow/errors"
)

// DefaultHTTPTimeout bounds a single HTTP attempt.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPHandler fetches with GET and stores with PUT. Transient failures
// (5xx, 429, timeouts) are retried.
type HTTPHandler struct {
	Client *http.Client
	Retry  tferrors.RetryConfig
}

// NewHTTPHandler creates a handler using client, or a client with
// DefaultHTTPTimeout when nil.
func NewHTTPHandler(client *http.Client) *HTTPHandler {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPHandler{Client: client, Retry: tferrors.DefaultRetry}
}

// Fetch implements Handler.
func (h *HTTPHandler) Fetch(ctx context.Context, uri string) ([]byte, error) {
	res := tferrors.WithRetry(ctx, h.Retry, func(ctx context.Context) ([]byte, error) {
		return h.do(ctx, http.MethodGet, uri, nil)
	})
	return res.Value, res.Err
}

// Put implements Handler.
func (h *HTTPHandler) Put(ctx context.Context, uri string, data []byte) error {
	res := tferrors.WithRetry(ctx, h.Retry, func(ctx context.Context) ([]byte, error) {
		return h.do(ctx, http.MethodPut, uri, data)
	})
	return res.Err
}

func (h *HTTPHandler) do(ctx context.Context, method, uri string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if ctx.Err() == nil && isTimeout(err) {
			return nil, &tferrors.TimeoutError{Operation: method + " " + uri, Duration: h.Client.Timeout.String()}
		}
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &tferrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
			Endpoint:   uri,
		}
	}
	return data, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
