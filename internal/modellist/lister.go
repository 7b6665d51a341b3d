// Package modellist fetches the models a user token can use and keeps an
// ordered, asynchronously refreshed catalog of them.
package modellist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable is returned when the endpoint cannot produce a model list:
// the request failed, the status was not 200, or the list was empty.
var ErrUnavailable = errors.New("model list unavailable")

// Lister queries an OpenAI-compatible /v1/models endpoint.
type Lister struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Lister.
type Option func(*Lister)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Lister) {
		l.httpClient = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Lister) {
		l.logger = logger
	}
}

// NewLister returns a Lister for baseURL, for example https://api.openai.com.
func NewLister(baseURL string, opts ...Option) *Lister {
	l := &Lister{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type listResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// List returns the model ids visible to token, in the order the endpoint
// sent them.
func (l *Lister) List(ctx context.Context, token string) ([]string, error) {
	url := l.baseURL + "/v1/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Error().Err(err).Str("url", url).Msg("ListModels failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		l.logger.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("ListModels rejected")
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var listResp listResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	models := make([]string, 0, len(listResp.Data))
	for _, m := range listResp.Data {
		models = append(models, m.ID)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnavailable)
	}
	l.logger.Debug().Int("count", len(models)).Msg("ListModels success")
	return models, nil
}
