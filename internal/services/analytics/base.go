package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	xhttp "CreditRisk/pkg/http"
)

var errNoServiceURL = errors.New("model service url not configured")

// HTTPServiceBase holds the client and base URL shared by remote model adapters.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a JSON client with timeout and bounded retries
// on transport errors and 5xx answers.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, retries int, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opts = append([]xhttp.ClientOption{
		xhttp.WithTimeout(timeout),
		xhttp.WithRetries(retries, 50*time.Millisecond),
	}, opts...)
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

// PostJSON posts payload to path under the base URL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return errNoServiceURL
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
