package httpx

import (
	"net/http"
	"net/http/cookiejar"
	"time"
)

type ClientOptions struct {
	Timeout time.Duration

	// Proxy follows ApplyProxy. Empty means a direct connection, even when
	// HTTP_PROXY is set.
	Proxy string

	// CookieJar keeps cookies between requests; the auth refresh flow needs it.
	CookieJar bool

	// Transport is cloned when set, otherwise http.DefaultTransport is.
	Transport *http.Transport
}

func NewClient(opts ClientOptions) (*http.Client, error) {
	var transport *http.Transport
	if opts.Transport != nil {
		transport = opts.Transport.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	if err := ApplyProxy(transport, opts.Proxy); err != nil {
		return nil, err
	}

	var jar http.CookieJar
	if opts.CookieJar {
		jar, _ = cookiejar.New(nil)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}, nil
}
