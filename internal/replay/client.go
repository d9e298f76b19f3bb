package replay

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
)

const maxHeaderBytes = 1 << 20

// Client replays requests over a fresh connection per call. It keeps no
// state between calls and is safe for concurrent use.
type Client struct {
	config Config
	dialer *net.Dialer
	log    *zap.Logger
}

type ClientParams struct {
	// Config is the transport configuration.
	Config Config

	// Log is the logger to use for the client.
	Log *zap.Logger
}

func NewClient(params ClientParams) *Client {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		config: params.Config.withDefaults(),
		dialer: &net.Dialer{KeepAlive: -1},
		log:    log.Named("replay"),
	}
}

// Do prepares req for target and sends it. Redirects are not followed and
// nothing is retried. Transport problems are reported through
// Response.Failure.
func (c *Client) Do(ctx context.Context, req *rawhttp.Request, target Target) *Response {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	log := c.log.With(
		zap.String("method", req.Method),
		zap.String("host", target.Host),
		zap.Bool("https", target.HTTPS),
		zap.Bool("proxy", target.Proxy != ""),
	)

	if err := target.Validate(); err != nil {
		return &Response{Failure: &Failure{Kind: FailureUnknown, Err: err}}
	}

	sent := Prepare(req, target)

	log.Debug("replaying request", zap.String("path", sent.Target))

	resp, err := c.roundTrip(ctx, sent, target)
	elapsed := time.Since(start)

	if err != nil {
		failure := classify(ctx, err)
		log.Debug("replay failed",
			zap.String("kind", string(failure.Kind)),
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
		)
		return &Response{Failure: failure, Elapsed: elapsed, Sent: sent}
	}

	resp.Elapsed = elapsed
	resp.Sent = sent

	log.Debug("replay done",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(resp.Body)),
		zap.Bool("truncated", resp.Truncated),
		zap.Duration("elapsed", elapsed),
	)

	return resp
}

func (c *Client) roundTrip(ctx context.Context, sent *rawhttp.Request, target Target) (*Response, error) {
	conn, viaHTTPProxy, err := c.connect(ctx, target)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	wire := sent
	if viaHTTPProxy != nil {
		wire = forwardForm(sent, target, viaHTTPProxy)
	}

	if _, err := wire.WriteTo(conn); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	return c.readResponse(bufio.NewReader(conn), sent.Method)
}

// connect returns a connection ready for the request bytes. The returned
// proxy config is set when plain HTTP is forwarded through an http proxy,
// which needs the absolute-form target.
func (c *Client) connect(ctx context.Context, target Target) (net.Conn, *ProxyConfig, error) {
	p, err := ParseProxy(target.Proxy)
	if err != nil {
		return nil, nil, err
	}

	addr := target.Address()

	var conn net.Conn
	switch {
	case p == nil:
		conn, err = c.dialer.DialContext(ctx, "tcp", addr)
	case p.IsSOCKS():
		conn, err = c.dialSOCKS(ctx, p, addr)
	default:
		conn, err = c.dialHTTPProxy(ctx, p)
		if err == nil && target.HTTPS {
			if deadline, ok := ctx.Deadline(); ok {
				conn.SetDeadline(deadline)
			}
			if err = tunnel(conn, p, addr); err != nil {
				conn.Close()
			}
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if !target.HTTPS {
		if p != nil && !p.IsSOCKS() {
			return conn, p, nil
		}
		return conn, nil, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         target.Hostname(),
		InsecureSkipVerify: c.config.InsecureSkipVerify,
		NextProtos:         []string{"http/1.1"},
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, nil, &tlsError{err: err}
	}

	return tlsConn, nil, nil
}

// forwardForm rewrites sent for a plain HTTP forward through an http proxy.
func forwardForm(sent *rawhttp.Request, target Target, p *ProxyConfig) *rawhttp.Request {
	out := sent.Clone()
	if out.Target != "*" {
		out.Target = target.URL(out.Target)
	}
	if auth := p.basicAuth(); auth != "" {
		out.Headers = append(out.Headers, rawhttp.Header{Name: "Proxy-Authorization", Value: auth})
	}
	return out
}

func (c *Client) readResponse(br *bufio.Reader, method string) (*Response, error) {
	for {
		head, err := readHead(br)
		if err != nil {
			return nil, err
		}

		statusLine, headerBlock, _ := bytes.Cut(head, []byte("\n"))
		if code := statusCode(statusLine); code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
			c.log.Debug("skipping interim response", zap.Int("status", code))
			continue
		}

		hr, err := http.ReadResponse(
			bufio.NewReader(io.MultiReader(bytes.NewReader(head), br)),
			&http.Request{Method: strings.ToUpper(method)},
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errProtocol, err)
		}
		defer hr.Body.Close()

		resp := &Response{
			StatusCode: hr.StatusCode,
			Status:     reasonPhrase(hr),
			Proto:      hr.Proto,
		}

		resp.Headers, err = rawhttp.ParseHeaderBlock(headerBlock)
		if err != nil {
			c.log.Debug("response headers not parseable in order", zap.Error(err))
			resp.Headers = fromHeaderMap(hr.Header)
		}

		body, truncated, err := readCapped(hr.Body, c.config.MaxBodySize)
		if err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("reading body: %w", err)
			}
			return nil, fmt.Errorf("%w: reading body: %w", errProtocol, err)
		}
		resp.Body = body
		resp.Truncated = truncated

		if enc, ok := resp.Headers.Get("Content-Encoding"); ok && !truncated {
			decoded, codings, capped, err := decodeBody(enc, body, c.config.MaxBodySize)
			if err != nil {
				c.log.Debug("body left encoded", zap.String("encoding", enc), zap.Error(err))
			} else if codings != "" {
				resp.Body = decoded
				resp.Decoded = codings
				resp.Truncated = capped
			}
		}

		return resp, nil
	}
}

// readHead reads a status line and header block up to and including the
// terminating empty line.
func readHead(br *bufio.Reader) ([]byte, error) {
	var head []byte
	for {
		line, err := br.ReadSlice('\n')
		if err != nil && err != bufio.ErrBufferFull {
			if isTimeout(err) {
				return nil, fmt.Errorf("reading response: %w", err)
			}
			if len(head) == 0 && len(line) == 0 {
				return nil, fmt.Errorf("%w: connection closed before a response was received: %w", errProtocol, err)
			}
			return nil, fmt.Errorf("%w: truncated response head: %w", errProtocol, err)
		}

		head = append(head, line...)
		if len(head) > maxHeaderBytes {
			return nil, fmt.Errorf("%w: response head exceeds %d bytes", errProtocol, maxHeaderBytes)
		}
		if err == nil && (len(line) == 1 || (len(line) == 2 && line[0] == '\r')) {
			return head, nil
		}
	}
}

func statusCode(statusLine []byte) int {
	fields := strings.Fields(string(statusLine))
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

func reasonPhrase(hr *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(hr.Status, strconv.Itoa(hr.StatusCode)))
	if reason == "" {
		reason = http.StatusText(hr.StatusCode)
	}
	return reason
}

func fromHeaderMap(h http.Header) rawhttp.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out rawhttp.Headers
	for _, name := range names {
		for _, value := range h[name] {
			out = append(out, rawhttp.Header{Name: name, Value: value})
		}
	}
	return out
}
