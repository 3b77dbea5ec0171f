package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// ApplyProxy configures transport from a proxy setting:
//   - "" or "direct" (also "off", "none", ...): no proxy
//   - "env": HTTP_PROXY / HTTPS_PROXY / NO_PROXY
//   - http(s)://host:port or bare host:port: fixed HTTP proxy
//   - socks5://[user:pass@]host:port: dial through a SOCKS5 proxy
func ApplyProxy(transport *http.Transport, raw string) error {
	if transport == nil {
		return fmt.Errorf("transport is required")
	}
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "0", "false", "off", "no", "none", "direct":
		transport.Proxy = nil
		return nil
	case "env":
		transport.Proxy = http.ProxyFromEnvironment
		return nil
	}

	u, err := ParseProxyURL(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "socks5" || u.Scheme == "socks5h" {
		dialer, err := socksDialer(u)
		if err != nil {
			return err
		}
		transport.Proxy = nil
		transport.DialContext = dialer
		return nil
	}
	transport.Proxy = http.ProxyURL(u)
	return nil
}

func ParseProxyURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty proxy url")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported scheme %q (http, https or socks5)", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

func socksDialer(u *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}
