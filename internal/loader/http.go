package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"IBSentinel/internal/model"
)

// HTTPSource downloads bars from a REST endpoint returning a JSON array
// of {"timestamp": unix seconds, "open", "high", "low", "close"} objects.
type HTTPSource struct {
	URL    string
	APIKey string
	Client *http.Client
}

// NewHTTPSource creates an HTTP source with optional proxy support.
func NewHTTPSource(endpoint, apiKey, proxyURL string) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPSource{
		URL:    endpoint,
		APIKey: apiKey,
		Client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
	}
}

func (s *HTTPSource) Name() string { return "http:" + s.URL }

type httpBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// Fingerprint uses the ETag or Last-Modified header of a HEAD request.
// Servers that send neither, or reject HEAD, yield "" and are reloaded
// every time; status errors then surface from Load.
func (s *HTTPSource) Fingerprint(ctx context.Context) (string, error) {
	resp, err := s.send(ctx, http.MethodHead)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		return "etag:" + etag, nil
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		return "lm:" + lm, nil
	}
	return "", nil
}

func (s *HTTPSource) Load(ctx context.Context) ([]model.RawRow, error) {
	resp, err := s.do(ctx, http.MethodGet)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var bars []httpBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	rows := make([]model.RawRow, len(bars))
	for i, b := range bars {
		rows[i] = model.RawRow{
			Timestamp: time.Unix(b.Timestamp, 0).UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		}
	}
	return rows, nil
}

func (s *HTTPSource) do(ctx context.Context, method string) (*http.Response, error) {
	resp, err := s.send(ctx, method)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func (s *HTTPSource) send(ctx context.Context, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL, nil)
	if err != nil {
		return nil, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	return resp, nil
}
