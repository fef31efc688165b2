// Package padapi talks to the game's HTTP API: it signs requests with an
// external key generator, logs in, and downloads the raw data documents.
package padapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// DefaultUserAgent is the user agent the game client sends.
const DefaultUserAgent = "GunghoPuzzleAndDungeon"

// maxErrorBody bounds how much of a failed response is quoted in an error.
const maxErrorBody = 256

// KeyGenerator signs a request payload for a server. Implementations are
// supplied at runtime; the signing algorithm is not part of this package.
type KeyGenerator interface {
	GenerateKey(server, payload string) (string, error)
}

// Param is one query parameter. Order is significant because the key is
// computed over the joined payload.
type Param struct {
	Key   string
	Value string
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	// Server is the region name used to select the key algorithm, e.g. "NA".
	Server string
	// APIName is the region code sent as p; defaults to RegionCode(Server).
	APIName   string
	Base      BaseInfo
	UserAgent string
	Keygen    KeyGenerator
	HTTP      *http.Client
	Logger    *zap.Logger
}

// Client issues signed API requests against one server.
type Client struct {
	server    string
	apiName   string
	base      BaseInfo
	host      string
	userAgent string
	keygen    KeyGenerator
	http      *http.Client
	logger    *zap.Logger
}

// NewClient validates opts and constructs a Client.
//
// Precondition: opts.Keygen must be non-nil and opts.Base.Base must be an
// absolute URL.
// Postcondition: returns a non-nil Client or an error.
func NewClient(opts Options) (*Client, error) {
	if opts.Keygen == nil {
		return nil, errors.New("padapi: key generator is required")
	}
	if opts.Server == "" {
		return nil, errors.New("padapi: server name is required")
	}
	u, err := url.Parse(opts.Base.Base)
	if err != nil {
		return nil, fmt.Errorf("padapi: parsing api endpoint: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("padapi: api endpoint %q has no host", opts.Base.Base)
	}

	c := &Client{
		server:    strings.ToUpper(opts.Server),
		apiName:   opts.APIName,
		base:      opts.Base,
		host:      u.Hostname(),
		userAgent: opts.UserAgent,
		keygen:    opts.Keygen,
		http:      opts.HTTP,
		logger:    opts.Logger,
	}
	if c.apiName == "" {
		c.apiName = RegionCode(opts.Server)
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// RegionCode maps a server name to the region code the API expects. JP is
// called "ja"; every other server is its own name in lower case.
func RegionCode(server string) string {
	p := strings.ToLower(server)
	if p == "jp" {
		return "ja"
	}
	return p
}

// Server returns the upper-cased server name.
func (c *Client) Server() string { return c.server }

// BuildURL joins params as k=v pairs in order, appends the generated key and
// returns the full request URL. Values are sent verbatim.
func (c *Client) BuildURL(params []Param) (string, error) {
	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = p.Key + "=" + p.Value
	}
	payload := strings.Join(pairs, "&")

	key, err := c.keygen.GenerateKey(c.server, payload)
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return fmt.Sprintf("%s?%s&key=%s", c.base.Base, payload, key), nil
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", c.userAgent)
	h.Set("Accept-Charset", "utf-8")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Accept-Encoding", "gzip")
	h.Set("Connection", "Keep-Alive")
	return h
}

// getJSON signs params, issues the request and decodes the response. Numbers
// are kept as json.Number so documents re-encode without loss.
func (c *Client) getJSON(ctx context.Context, params []Param) (map[string]any, error) {
	u, err := c.BuildURL(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header = c.headers()
	req.Host = c.host

	c.logger.Debug("api request", zap.String("server", c.server), zap.String("action", params[0].Value))

	body, err := doRequest(c.http, req)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return doc, nil
}

// doRequest executes req and returns the decoded body of a 2xx response.
// Any other status yields a *StatusError, even when the body cannot be
// decoded.
func doRequest(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: errorExcerpt(resp)}
	}

	r, err := decodedBody(resp)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// errorExcerpt reads at most maxErrorBody bytes of a failed response. The
// raw bytes are used when the body cannot be decoded.
func errorExcerpt(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	body := raw
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if r, err := decodedBody(resp); err == nil {
		if decoded, err := io.ReadAll(io.LimitReader(r, maxErrorBody)); err == nil {
			body = decoded
		}
		r.Close()
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
