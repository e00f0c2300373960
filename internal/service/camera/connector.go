package camera

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// StatusError is returned when the camera answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("camera %s answered %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Connector opens long-lived streaming GET requests against a camera endpoint.
type Connector struct {
	url    string
	client *http.Client
}

// NewConnector creates a Connector. connectTimeout bounds dialing and waiting for the
// response headers; readTimeout bounds the silence between two reads of the body.
func NewConnector(url string, connectTimeout, readTimeout time.Duration) *Connector {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, readTimeout: readTimeout}, nil
		},
		ResponseHeaderTimeout: connectTimeout,
		// every connection is a single stream; never reuse a dropped one
		DisableKeepAlives: true,
	}

	return &Connector{
		url:    url,
		client: &http.Client{Transport: transport},
	}
}

// NewConnectorWithClient creates a Connector that uses the given HTTP client.
func NewConnectorWithClient(url string, client *http.Client) *Connector {
	return &Connector{url: url, client: client}
}

// URL returns the camera endpoint.
func (c *Connector) URL() string {
	return c.url
}

// Connect opens the stream. The caller owns and must close the returned body.
func (c *Connector) Connect(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to camera: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: c.url, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// deadlineConn pushes the read deadline forward before every read, so a camera that
// stops sending fails the read instead of blocking forever.
type deadlineConn struct {
	net.Conn
	readTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}
