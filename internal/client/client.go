// Package client provides the HTTP adapter for a comment backend exposed as
// four POST endpoints guarded by a static API key.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/remote"
)

// ErrConfig is returned by New when an endpoint or the API key is missing.
var ErrConfig = errors.New("comment backend requires read, create, update and delete endpoints and an API key")

// Endpoints are the four backend URLs.
type Endpoints struct {
	Read   string `yaml:"read"`
	Create string `yaml:"create"`
	Update string `yaml:"update"`
	Delete string `yaml:"delete"`
}

// ForServer returns the endpoints of the reference server at baseURL.
func ForServer(baseURL, deckID string) Endpoints {
	base := strings.TrimRight(baseURL, "/") + "/api/decks/" + deckID + "/comments/"
	return Endpoints{
		Read:   base + "read",
		Create: base + "create",
		Update: base + "update",
		Delete: base + "delete",
	}
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Code, http.StatusText(e.Code))
}

// Options tune a Client. The zero value is usable.
type Options struct {
	// PlaceholderAuthors are author names the backend writes on behalf of
	// everyone (a service account). They are replaced by the author field
	// the client sent.
	PlaceholderAuthors []string
	HTTPClient         *http.Client
	Logger             *slog.Logger
	// Now stamps outgoing writes. Defaults to time.Now.
	Now func() time.Time
}

// Client talks to one deck's comment backend.
type Client struct {
	endpoints    Endpoints
	apiKey       string
	placeholders map[string]bool
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

var _ remote.Client = (*Client)(nil)

// New creates a backend client.
func New(endpoints Endpoints, apiKey string, opts Options) (*Client, error) {
	if endpoints.Read == "" || endpoints.Create == "" || endpoints.Update == "" || endpoints.Delete == "" || apiKey == "" {
		return nil, ErrConfig
	}

	c := &Client{
		endpoints:    endpoints,
		apiKey:       apiKey,
		placeholders: make(map[string]bool, len(opts.PlaceholderAuthors)),
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	for _, name := range opts.PlaceholderAuthors {
		if name != "" {
			c.placeholders[name] = true
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// List returns the backend's collection.
func (c *Client) List(ctx context.Context) ([]comment.Comment, error) {
	body, err := c.post(ctx, "load", c.endpoints.Read, nil)
	if err != nil {
		return nil, err
	}
	comments, err := c.normalize(body)
	if err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}
	return comments, nil
}

// createRequest is the create payload. Every field is always sent.
type createRequest struct {
	ID        string  `json:"id"`
	ParentID  string  `json:"parentId"`
	Author    string  `json:"author"`
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	SlideID   string  `json:"slideId"`
	Resolved  bool    `json:"resolved"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Create sends c and returns it stamped with the write time.
func (c *Client) Create(ctx context.Context, cm comment.Comment, defaultSlideID string) (comment.Comment, error) {
	now := comment.FormatTime(c.now())
	req := createRequest{
		ID:        cm.ID,
		ParentID:  cm.ParentID,
		Author:    cm.Author,
		Text:      cm.Text,
		X:         cm.X,
		Y:         cm.Y,
		SlideID:   cm.SlideID,
		Resolved:  cm.Resolved,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
	if req.SlideID == "" {
		req.SlideID = defaultSlideID
	}
	if req.CreatedAt == "" {
		req.CreatedAt = now
	}
	if req.UpdatedAt == "" {
		req.UpdatedAt = now
	}

	if _, err := c.post(ctx, "save", c.endpoints.Create, req); err != nil {
		return comment.Comment{}, err
	}

	cm.UpdatedAt = now
	return cm, nil
}

// updateRequest carries the patch subset plus the write time.
type updateRequest struct {
	comment.Patch
	UpdatedAt string `json:"updatedAt"`
}

// Update sends the non-nil fields of p.
func (c *Client) Update(ctx context.Context, p comment.Patch) (remote.Ack, error) {
	now := comment.FormatTime(c.now())
	if _, err := c.post(ctx, "update", c.endpoints.Update, updateRequest{Patch: p, UpdatedAt: now}); err != nil {
		return remote.Ack{}, err
	}
	return remote.Ack{UpdatedAt: now}, nil
}

// Delete removes one comment.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.post(ctx, "delete", c.endpoints.Delete, map[string]string{"id": id})
	return err
}

// post sends body as JSON (or nothing when body is nil) and returns the
// response body.
func (c *Client) post(ctx context.Context, op, url string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	return c.do(req, op)
}

// do executes an HTTP request and maps non-2xx answers to *StatusError.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, Code: resp.StatusCode}
	}

	return respBody, nil
}
