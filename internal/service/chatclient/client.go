package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

// ChatPath is the route of the reply service.
const ChatPath = "/api/chat"

const maxResponseBytes = 1 << 20

// Client performs one request/reply exchange per Send. It never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Its Timeout, if any, is the only
// deadline the client applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q must use http or https", base)
	}
	if u.Host == "" {
		return nil, errors.Errorf("base url %q has no host", base)
	}

	c := &Client{
		endpoint:   strings.TrimRight(base, "/") + ChatPath,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts text on behalf of session and returns the reply. The text is
// expected to be trimmed and non-empty already. Failures are *Error values.
func (c *Client) Send(ctx context.Context, session chat.SessionIdentity, text string) (string, error) {
	body, err := json.Marshal(chat.Request{UserID: session.String(), Message: text})
	if err != nil {
		return "", errors.Wrap(err, "encode chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUnreachable, Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", &Error{Kind: KindBadStatus, StatusCode: resp.StatusCode}
	}

	return decodeReply(resp.Body)
}

func decodeReply(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes+1))
	if err != nil {
		return "", &Error{Kind: KindMalformedResponse, Err: errors.Wrap(err, "read body")}
	}
	if len(data) > maxResponseBytes {
		return "", &Error{Kind: KindMalformedResponse, Err: errBodyTooLarge}
	}

	// A pointer distinguishes an absent or null reply from an empty one.
	var payload struct {
		Reply *string `json:"reply"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &Error{Kind: KindMalformedResponse, Err: errors.Wrap(err, "decode body")}
	}
	if payload.Reply == nil {
		return "", &Error{Kind: KindMalformedResponse, Err: errMissingReply}
	}
	return *payload.Reply, nil
}
