// package hostsfetch ...
package hostsfetch

// import
import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// getTlsConf ...
func getTlsConf() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify:     false,
		SessionTicketsDisabled: true,
		Renegotiation:          tls.RenegotiateNever,
		MinVersion:             tls.VersionTLS12,
	}
}

// getTransport ...
func getTransport(tlsconf *tls.Config, timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSClientConfig:       tlsconf,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true, // single shot
		ForceAttemptHTTP2:     true,
	}
}

// getClient ...
func getClient(transport *http.Transport, timeout time.Duration) *http.Client {
	return &http.Client{
		Jar:       nil,
		Transport: transport,
		Timeout:   timeout,
	}
}

// getRequest ...
func getRequest(ctx context.Context, targetURL, userAgent string) (*http.Request, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, errUnsupportedScheme(u.Scheme)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// timeoutOrDefault ...
func timeoutOrDefault(t time.Duration) time.Duration {
	if t <= 0 {
		return _DEFAULT_TIMEOUT
	}
	return t
}
