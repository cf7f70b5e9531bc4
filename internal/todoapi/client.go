package todoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"todoperf/internal/config"
	"todoperf/pkg/logging"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	contentTypeJSON = "application/json"
	contentTypeXML  = "application/xml"
)

// xmlBody is implemented by bodies that know how to encode themselves under a
// root element, such as payload.Fields.
type xmlBody interface {
	XML(root string) ([]byte, error)
}

// Request describes one call against the API.
type Request struct {
	Method string
	// Path is joined to the base URL, e.g. /todos/3.
	Path string
	// Body is encoded according to Format. Nil sends no body.
	Body   interface{}
	Format config.BodyFormat
	// Root is the XML root element name used when Format is xml.
	Root string
}

// Response is the status, headers and body of a completed call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the status is 200 or 201.
func (r *Response) OK() bool {
	return IsSuccess(r.StatusCode)
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// IsSuccess reports whether status is one of the codes the API uses for success.
func IsSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

// StatusError is returned by helpers that require a successful status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client issues requests against one Todo Manager instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL whose calls are bounded by timeout.
// The client owns its transport and never shares connections with
// http.DefaultClient.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req. Transport failures are returned as errors; any HTTP status,
// including 4xx and 5xx, is returned as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s body: %w", req.Method, req.Path, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", req.Method, req.Path, err)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Duration:   time.Since(start),
	}
	logging.Debug("TodoAPI", "%s %s -> %d (%s)", req.Method, req.Path, result.StatusCode, result.Duration)
	return result, nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}

	switch req.Format {
	case config.FormatXML:
		if req.Root == "" {
			return nil, "", fmt.Errorf("xml body requires a root element name")
		}
		if b, ok := req.Body.(xmlBody); ok {
			data, err := b.XML(req.Root)
			return data, contentTypeXML, err
		}
		data, err := xml.Marshal(req.Body)
		return data, contentTypeXML, err
	case config.FormatJSON, "":
		data, err := json.Marshal(req.Body)
		return data, contentTypeJSON, err
	default:
		return nil, "", fmt.Errorf("unsupported body format %q", req.Format)
	}
}

// Get performs a GET on path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Shutdown asks the server to exit. The server usually drops the connection
// while answering, so callers should expect a transport error.
func (c *Client) Shutdown(ctx context.Context, path string) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}
