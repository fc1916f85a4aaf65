package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the attempt correlation id.
const RequestIDHeader = "X-Request-ID"

// ErrRemoteRejected wraps non-2xx answers from the remote endpoint.
var ErrRemoteRejected = errors.New("submission: remote rejected submission")

const maxResponseBytes = 1 << 20

// HTTPAcceptor posts records as JSON to an endpoint.
type HTTPAcceptor struct {
	endpoint string
	client   *http.Client
}

// HTTPOption configures an HTTPAcceptor.
type HTTPOption func(*HTTPAcceptor)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(a *HTTPAcceptor) {
		if client != nil {
			a.client = client
		}
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(a *HTTPAcceptor) {
		if timeout > 0 {
			a.client = &http.Client{Timeout: timeout}
		}
	}
}

// NewHTTPAcceptor returns an acceptor posting to endpoint.
func NewHTTPAcceptor(endpoint string, opts ...HTTPOption) (*HTTPAcceptor, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("submission: endpoint is required")
	}
	a := &HTTPAcceptor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a, nil
}

// Accept posts the record and reads the receipt id from a {"id": "..."}
// response body.
func (a *HTTPAcceptor) Accept(ctx context.Context, record Record) (Receipt, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return Receipt{}, fmt.Errorf("submission: encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, fmt.Errorf("submission: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	id, ok := AttemptIDFrom(ctx)
	if !ok {
		id = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, id)

	resp, err := a.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("submission: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Receipt{}, fmt.Errorf("submission: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Receipt{}, fmt.Errorf("%w: status %d", ErrRemoteRejected, resp.StatusCode)
	}

	var receipt Receipt
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &receipt); err != nil {
			return Receipt{}, fmt.Errorf("submission: decode response: %w", err)
		}
	}
	return receipt, nil
}
