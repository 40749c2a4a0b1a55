// Package transcription is a client for the remote audio-transcription
// service. It covers single-file and batch transcription, performance
// introspection and health checking, and normalizes every failure into an
// *Error whose message can be shown to a user as is.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the local development endpoint
	DefaultBaseURL = "http://localhost:8000"

	// DefaultUserAgent is sent unless overridden with WithUserAgent
	DefaultUserAgent = "transcription-client/1.0"

	pathTranscribe  = "/transcribe/"
	pathBatch       = "/transcribe/batch"
	pathPerformance = "/performance"
	pathHealth      = "/health"

	fieldFile  = "file"
	fieldFiles = "files"

	// maxErrorBodySize caps how much of a non-2xx body is decoded looking for
	// an "error" message. A larger body is cut off, fails to decode and yields
	// the "HTTP {status}: {statusText}" message instead.
	maxErrorBodySize = 1 << 20
)

// HTTPClient is the subset of *http.Client the Client needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one transcription service. It holds no per-call state and
// is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPClient
}

type clientOptions struct {
	httpClient HTTPClient
	transport  http.RoundTripper
	jar        http.CookieJar
	timeout    time.Duration
	userAgent  string
}

// Option configures a Client
type Option func(*clientOptions)

// WithHTTPClient makes the Client send every request through httpClient.
// WithTransport, WithCookieJar and WithTimeout are ignored when it is set.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithTransport sets the RoundTripper of the default http.Client.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

// WithCookieJar replaces the in-memory cookie jar holding ambient credentials.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *clientOptions) {
		o.jar = jar
	}
}

// WithTimeout bounds each request. Zero leaves timing to the transport.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// New creates a Client for baseURL. An empty baseURL means DefaultBaseURL.
// The URL is stored verbatim; endpoint paths are appended to it as is.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := &clientOptions{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(o)
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := o.httpClient
	if httpClient == nil {
		jar := o.jar
		if jar == nil {
			var err error
			if jar, err = cookiejar.New(nil); err != nil {
				return nil, fmt.Errorf("failed to create cookie jar: %w", err)
			}
		}
		httpClient = &http.Client{
			Transport: o.transport,
			Jar:       jar,
			Timeout:   o.timeout,
		}
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  o.userAgent,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the URL the Client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TranscribeFile uploads one audio file under the form field "file".
func (c *Client) TranscribeFile(ctx context.Context, file File) (*TranscriptionResult, error) {
	body, contentType, err := encodeMultipart(fieldFile, []File{file})
	if err != nil {
		return nil, err
	}

	var result TranscriptionResult
	if err := c.do(ctx, http.MethodPost, pathTranscribe, body, contentType, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TranscribeBatch uploads files under the repeated form field "files", in
// order. An empty batch is sent as is; the service decides whether to reject it.
func (c *Client) TranscribeBatch(ctx context.Context, files []File) (*BatchTranscriptionResult, error) {
	body, contentType, err := encodeMultipart(fieldFiles, files)
	if err != nil {
		return nil, err
	}

	var result BatchTranscriptionResult
	if err := c.do(ctx, http.MethodPost, pathBatch, body, contentType, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPerformanceInfo fetches the service's device and audio settings.
// Non-2xx responses always yield "HTTP {status}: {statusText}"; the body is not inspected.
func (c *Client) GetPerformanceInfo(ctx context.Context) (*PerformanceInfo, error) {
	var info PerformanceInfo
	if err := c.do(ctx, http.MethodGet, pathPerformance, nil, "", false, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// HealthCheck fetches the service's health status, with the same error
// policy as GetPerformanceInfo.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, pathHealth, nil, "", false, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// do performs one round trip and decodes a 2xx JSON body into out.
// readErrorBody selects whether a non-2xx body may supply the error message.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, readErrorBody bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp, readErrorBody)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// transportError returns the network error for connectivity failures and
// err itself for everything else, including caller cancellation.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if networkErr := classifyTransportError(err); networkErr != nil {
		return networkErr
	}
	return err
}

// responseError builds the error for a non-2xx response. With readBody, a
// non-empty string "error" field in the body becomes the message; otherwise,
// including when the body is not JSON, the message is
// "HTTP {status}: {statusText}" rather than a generic "Unknown error" so the
// status is never lost.
func responseError(resp *http.Response, readBody bool) *Error {
	statusErr := &Error{
		Kind:       KindStatus,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, statusText(resp)),
	}
	if !readBody {
		return statusErr
	}

	var payload struct {
		Error any `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodySize)).Decode(&payload); err != nil {
		return statusErr
	}
	if message, ok := payload.Error.(string); ok && message != "" {
		return &Error{
			Kind:       KindApplication,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}
	return statusErr
}

// statusText returns the reason phrase the server sent, falling back to the
// canonical text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes files as parts of one multipart/form-data body, all
// under field, in order.
func encodeMultipart(field string, files []File) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for i, file := range files {
		if file.Data == nil {
			return nil, "", fmt.Errorf("file %d (%q) has no data", i, file.Name)
		}

		// a part without a filename is read as a plain form value by most servers
		name := file.Name
		if name == "" {
			name = "blob"
		}
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(name)))
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form part for %q: %w", name, err)
		}
		if _, err := io.Copy(part, file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write audio data for %q: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
