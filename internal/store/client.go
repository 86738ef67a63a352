// Package store implements the HTTP Operation Engine: it turns a hex
// key and an operation into an HTTP round trip against the configured
// remote object store and reports back a three-valued Result.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/ccache/crsh/internal/config"
)

const (
	maxConnsPerHost     = 16
	maxTotalConnections = 16
	maxRedirects        = 5
)

// Client is the HTTP Operation Engine. It owns one shared
// *http.Client (and therefore one shared connection pool) for every
// operation it is asked to perform. Client is safe for concurrent use:
// every method may be called from multiple goroutines at once, exactly
// as the reference engine expects to serve many in-flight local
// connections off of one pool.
type Client struct {
	cfg     *config.Config
	log     *slog.Logger
	http    *http.Client
	headers []config.Header
}

// New builds a Client from a resolved Config. It never fails: if
// HTTP/2 negotiation setup can't be configured, it logs a warning and
// the transport falls back to HTTP/1.1, matching the reference engine's "HTTP/2
// preferred... with negotiation fallback" stance.
func New(cfg *config.Config, log *slog.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     maxConnsPerHost,
		MaxIdleConns:        maxTotalConnections,
		MaxIdleConnsPerHost: maxTotalConnections,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		log.Warn("failed to configure HTTP/2 transport, continuing with HTTP/1.1", "error", err)
	}

	httpClient := &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	// The snapshot lists Authorization first, then each configured
	// header in declaration order, and applyHeaders adds them to each
	// request in that order. A request's http.Header is a map keyed by
	// name, so the order in which distinct names appear on the wire is
	// chosen by net/http, not by this slice; only the order of several
	// values under one name is kept.
	var headers []config.Header
	if cfg.HasBearer {
		headers = append(headers, config.Header{Name: "Authorization", Value: "Bearer " + cfg.BearerToken})
	}
	headers = append(headers, cfg.Headers...)

	return &Client{cfg: cfg, log: log, http: httpClient, headers: headers}
}

// Get issues a GET for hexKey and reports the classified Result to
// callback exactly once, on its own goroutine.
func (c *Client) Get(ctx context.Context, hexKey string, callback func(Result)) {
	go func() {
		callback(c.simpleRequest(ctx, http.MethodGet, hexKey, true, classifyGetOrHead))
	}()
}

// Remove issues a DELETE for hexKey and reports the classified Result
// to callback exactly once, on its own goroutine.
func (c *Client) Remove(ctx context.Context, hexKey string, callback func(Result)) {
	go func() {
		callback(c.simpleRequest(ctx, http.MethodDelete, hexKey, false, classifyDelete))
	}()
}

// Put stores data under hexKey. When overwrite is false, a pre-flight
// HEAD probes for existence first: a 200 yields NOOP without ever
// issuing the PUT; a 404 proceeds to the PUT; anything else surfaces
// as ERROR, again without issuing the PUT. When overwrite is true the
// PUT is issued unconditionally. callback is invoked exactly once.
func (c *Client) Put(ctx context.Context, hexKey string, data []byte, overwrite bool, callback func(Result)) {
	go func() {
		if overwrite {
			callback(c.doPut(ctx, hexKey, data))
			return
		}

		head := c.simpleRequest(ctx, http.MethodHead, hexKey, false, classifyGetOrHead)
		switch head.Status {
		case OK:
			c.log.Debug("pre-flight HEAD found existing object, refusing overwrite", "key", hexKey)
			callback(Result{Status: NOOP})
		case NOOP:
			c.log.Debug("pre-flight HEAD found no existing object, proceeding with PUT", "key", hexKey)
			callback(c.doPut(ctx, hexKey, data))
		default:
			callback(head)
		}
	}()
}

func (c *Client) doPut(ctx context.Context, hexKey string, data []byte) Result {
	url := DeriveURL(c.cfg, hexKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return Result{Status: ERROR, Err: err}
	}
	req.ContentLength = int64(len(data))
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Status: ERROR, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return classifyPut(resp.StatusCode)
}

// simpleRequest issues a GET/HEAD/DELETE, optionally collecting the
// response body, and classifies the result with the operation's own
// status-code rule.
func (c *Client) simpleRequest(ctx context.Context, method, hexKey string, collectBody bool, classify func(int) Result) Result {
	url := DeriveURL(c.cfg, hexKey)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Result{Status: ERROR, Err: err}
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Status: ERROR, Err: err}
	}
	defer resp.Body.Close()

	var body []byte
	if collectBody && resp.StatusCode == http.StatusOK {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return Result{Status: ERROR, Err: err}
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	result := classify(resp.StatusCode)
	if result.Status == OK {
		result.Data = body
	}
	return result
}

func (c *Client) applyHeaders(req *http.Request) {
	for _, h := range c.headers {
		req.Header.Add(h.Name, h.Value)
	}
}
