package resolver

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

	"kickoff/internal/config"
	"kickoff/internal/domain"
	"kickoff/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

const maxErrorBody = 512

// decisionNamespace scopes idempotency keys derived from decisions.
var decisionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kickoff/decisions"))

// StatusError is returned when the resolver answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("resolver %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("resolver %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the match-resolution backend over HTTP. Every request is
// signed for the session's user.
type Client struct {
	baseURL string
	issuer  string
	secret  string
	subject string
	http    *http.Client
	logger  runtime.Logger
}

var _ ports.MatchResolverPort = (*Client)(nil)

// New creates a resolver client acting for subject.
func New(settings config.ResolverSettings, subject string, logger runtime.Logger) (*Client, error) {
	base := strings.TrimRight(settings.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("resolver base url is not configured")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid resolver base url: %w", err)
	}
	timeout := time.Duration(settings.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		issuer:  settings.Issuer,
		secret:  settings.Secret,
		subject: subject,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type decisionRequest struct {
	Decision int `json:"decision"`
	Minute   int `json:"minute"`
}

// FetchInitialTimeline returns every event the indexer knows for matchID.
func (c *Client) FetchInitialTimeline(ctx context.Context, matchID string) ([]domain.RawEvent, error) {
	var out ports.TimelineSlice
	if err := c.do(ctx, http.MethodGet, c.matchPath(matchID, "timeline"), nil, "", &out); err != nil {
		return nil, err
	}
	return out.TimelineEvents, nil
}

// SubmitDecision posts d for matchID. A retry of the same decision reuses its
// idempotency key.
func (c *Client) SubmitDecision(ctx context.Context, matchID string, d ports.Decision) (ports.TimelineSlice, error) {
	body, err := json.Marshal(decisionRequest{Decision: d.Code, Minute: d.Minute})
	if err != nil {
		return ports.TimelineSlice{}, fmt.Errorf("encode decision: %w", err)
	}
	key := IdempotencyKey(matchID, d)
	var out ports.TimelineSlice
	if err := c.do(ctx, http.MethodPost, c.matchPath(matchID, "decisions"), body, key, &out); err != nil {
		return ports.TimelineSlice{}, err
	}
	c.logger.Debug("SubmitDecision: match %s minute %d code %d returned %d events (key %s)", matchID, d.Minute, d.Code, len(out.TimelineEvents), key)
	return out, nil
}

// IdempotencyKey is a name-based UUID over the match, minute, event and code.
func IdempotencyKey(matchID string, d ports.Decision) string {
	name := fmt.Sprintf("%s/%d/%d/%d", matchID, d.Minute, d.EventID, d.Code)
	return uuid.NewSHA1(decisionNamespace, []byte(name)).String()
}

func (c *Client) matchPath(matchID, leaf string) string {
	return "/matches/" + url.PathEscape(matchID) + "/" + leaf
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotencyKey string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build resolver request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.secret != "" {
		token, err := SignToken(c.secret, c.issuer, c.subject, 0)
		if err != nil {
			return fmt.Errorf("sign resolver request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("resolver %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode resolver response: %w", err)
	}
	return nil
}
