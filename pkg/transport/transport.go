// Package transport posts sealed envelopes to the collection service.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/envelope"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/log"
)

const (
	HeaderRequestID = "X-Request-Id"

	DefaultTimeout          = 30 * time.Second
	DefaultMaxResponseBytes = 1 << 20
	DefaultUserAgent        = "campus-intake/1.0"
)

var (
	ErrInvalidURL       = errors.New("base URL must be an absolute http(s) URL")
	ErrResponseTooLarge = errors.New("response body exceeds limit")
)

type startCtxKey struct{}

// Config configures the HTTP client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string

	// HTTPClient replaces the default client, e.g. in tests.
	HTTPClient *http.Client
}

// Client sends envelopes. It is safe for concurrent use.
type Client struct {
	rc       *resty.Client
	maxBytes int64
}

// New creates a client for the collection service at conf.BaseURL.
func New(ctx context.Context, conf Config) (*Client, error) {
	u, err := url.Parse(conf.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, conf.BaseURL)
	}

	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2: true,
			},
		}
	}
	rc := resty.NewWithClient(httpClient)

	base := strings.TrimSuffix(conf.BaseURL, "/")
	rc.SetBaseURL(base)
	rc.SetLogger(log.L(ctx))
	log.L(ctx).Debugf("Created REST client to %s", base)

	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc.SetTimeout(timeout)

	ua := conf.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	rc.SetHeader("User-Agent", ua)
	rc.SetHeader("Accept", "application/json")

	rc.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		rCtx := context.WithValue(req.Context(), startCtxKey{}, time.Now())
		req.SetContext(rCtx)
		log.L(rCtx).Debugf("==> %s %s%s", req.Method, base, req.URL)
		return nil
	})

	maxBytes := conf.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	return &Client{rc: rc, maxBytes: maxBytes}, nil
}

// Reply is a response whose body has not been read yet.
type Reply struct {
	resp     *resty.Response
	maxBytes int64
}

// StatusCode returns the HTTP status.
func (r *Reply) StatusCode() int {
	return r.resp.StatusCode()
}

// OK reports a 2xx status.
func (r *Reply) OK() bool {
	return r.StatusCode() >= 200 && r.StatusCode() < 300
}

// ReadBody reads and closes the body, failing when it exceeds the size limit.
func (r *Reply) ReadBody(ctx context.Context) ([]byte, error) {
	body := r.resp.RawBody()
	if body == nil {
		return nil, nil
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, r.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, failure.Canceled(ctx.Err())
		}
		return nil, failure.Network(fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(data)) > r.maxBytes {
		return nil, failure.Network(fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, r.maxBytes))
	}
	return data, nil
}

// Close releases the body without reading it.
func (r *Reply) Close() error {
	if body := r.resp.RawBody(); body != nil {
		return body.Close()
	}
	return nil
}

// Send posts {"envelope": env} to path. No retry is attempted. The caller must
// read or close the returned reply.
func (c *Client) Send(ctx context.Context, path, env, requestID string) (*Reply, error) {
	body, err := json.Marshal(envelope.Body{Envelope: env})
	if err != nil {
		return nil, failure.Internal("failed to encode request body", err)
	}

	req := c.rc.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if requestID != "" {
		req.SetHeader(HeaderRequestID, requestID)
	}

	resp, err := req.Post(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, failure.Canceled(ctx.Err())
		}
		return nil, failure.Network(err)
	}

	afterResponse(resp)
	return &Reply{resp: resp, maxBytes: c.maxBytes}, nil
}

// afterResponse logs the exchange. Resty skips its response middleware when
// the body is left unparsed.
func afterResponse(resp *resty.Response) {
	rCtx := resp.Request.Context()
	level := logrus.DebugLevel
	if resp.StatusCode() >= 300 {
		level = logrus.WarnLevel
	}
	var elapsed time.Duration
	if start, ok := rCtx.Value(startCtxKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	log.L(rCtx).Logf(level, "<== %s %s [%d] (%dms)", resp.Request.Method, resp.Request.URL, resp.StatusCode(), elapsed.Milliseconds())
}
