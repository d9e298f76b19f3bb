package replay

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
)

var (
	ErrUnsupportedProxy = errors.New("unsupported proxy")
	ErrProxyConnect     = errors.New("proxy connection failed")
)

// ProxyConfig is a parsed proxy URL.
type ProxyConfig struct {
	Scheme   string
	Host     string
	Port     string
	Username string
	Password string
}

// ParseProxy validates a proxy URL. It returns nil, nil when raw is empty.
// A URL without a scheme is treated as an http proxy.
func ParseProxy(raw string) (*ProxyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedProxy, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: scheme %q, expected http, https, socks5 or socks5h", ErrUnsupportedProxy, u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrUnsupportedProxy)
	}

	p := &ProxyConfig{
		Scheme: scheme,
		Host:   u.Hostname(),
		Port:   u.Port(),
	}
	if p.Port == "" {
		switch scheme {
		case "http":
			p.Port = "8080"
		case "https":
			p.Port = "8443"
		default:
			p.Port = "1080"
		}
	}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}

	return p, nil
}

// IsSOCKS reports whether the proxy speaks SOCKS5.
func (p *ProxyConfig) IsSOCKS() bool {
	return p != nil && (p.Scheme == "socks5" || p.Scheme == "socks5h")
}

// Address returns the proxy address in host:port form.
func (p *ProxyConfig) Address() string {
	return net.JoinHostPort(p.Host, p.Port)
}

func (p *ProxyConfig) basicAuth() string {
	if p.Username == "" && p.Password == "" {
		return ""
	}
	creds := base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
	return "Basic " + creds
}

// dialSOCKS opens a connection to addr through a SOCKS5 proxy. With
// "socks5" the target name is resolved locally, with "socks5h" by the proxy.
func (c *Client) dialSOCKS(ctx context.Context, p *ProxyConfig, addr string) (net.Conn, error) {
	u := &url.URL{Scheme: "socks5", Host: p.Address()}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}

	d, err := proxy.FromURL(u, c.dialer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: socks dialer does not support contexts", ErrUnsupportedProxy)
	}

	if p.Scheme == "socks5" {
		addr, err = c.resolve(ctx, addr)
		if err != nil {
			return nil, err
		}
	}

	conn, err := cd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProxyConnect, err)
	}
	return conn, nil
}

func (c *Client) resolve(ctx context.Context, addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return addr, nil
	}

	ips, err := c.dialer.Resolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	return net.JoinHostPort(ips[0], port), nil
}

// dialHTTPProxy connects to an http or https proxy.
func (c *Client) dialHTTPProxy(ctx context.Context, p *ProxyConfig) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", p.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProxyConnect, err)
	}
	if p.Scheme != "https" {
		return conn, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         p.Host,
		InsecureSkipVerify: c.config.InsecureSkipVerify,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrProxyConnect, &tlsError{err: err})
	}
	return tlsConn, nil
}

// tunnel asks an http proxy to CONNECT to addr.
func tunnel(conn net.Conn, p *ProxyConfig, addr string) error {
	req := &rawhttp.Request{
		Method:  http.MethodConnect,
		Target:  addr,
		Proto:   "HTTP/1.1",
		Headers: rawhttp.Headers{{Name: "Host", Value: addr}},
	}
	if auth := p.basicAuth(); auth != "" {
		req.Headers = append(req.Headers, rawhttp.Header{Name: "Proxy-Authorization", Value: auth})
	}

	if _, err := req.WriteTo(conn); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyConnect, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		return fmt.Errorf("%w: reading CONNECT response: %w", ErrProxyConnect, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: CONNECT %s: %s", ErrProxyConnect, addr, resp.Status)
	}
	if br.Buffered() > 0 {
		return fmt.Errorf("%w: proxy sent data before the tunnel was established", ErrProxyConnect)
	}

	return nil
}
