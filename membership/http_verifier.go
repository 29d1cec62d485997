package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultLookupTimeout = 5 * time.Second

// HTTPVerifier looks numbers up with GET {baseURL}/members/{number}.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{Timeout: defaultLookupTimeout}
	}
	return &HTTPVerifier{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (v *HTTPVerifier) Lookup(ctx context.Context, number string) (*Record, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrMemberNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/members/"+url.PathEscape(number), nil)
	if err != nil {
		return nil, fmt.Errorf("build membership request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrMemberNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: lookup returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: decode lookup response: %w", ErrUnavailable, err)
	}
	if rec.Number == "" {
		rec.Number = number
	}
	return &rec, nil
}
