package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"inabottle/pkg/tracing"
)

var errResponseTooLarge = errors.New("upstream response exceeds max_body_bytes")

// Hop-by-hop headers, RFC 7230 section 6.1.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type upstreamResponse struct {
	status int
	header http.Header
	body   []byte
}

// statusError marks a 5xx answer so the breaker counts it as a failure while
// the caller still sees what the backend sent.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.status)
}

// proxy forwards one request and buffers the whole response. Nothing is
// written to the client until the call has definitively succeeded, which lets
// the fallback replace late failures.
type proxy struct {
	client   *http.Client
	resolver *Resolver
	maxBody  int64
}

func newProxy(resolver *Resolver, maxBody int64) *proxy {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &proxy{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		resolver: resolver,
		maxBody:  maxBody,
	}
}

func (p *proxy) forward(ctx context.Context, route *Route, in *http.Request, body []byte) (*upstreamResponse, error) {
	target, err := p.resolver.Resolve(route.URI)
	if err != nil {
		return nil, err
	}

	outURL := *target
	outURL.Path = strings.TrimSuffix(target.Path, "/") + route.Rewrite(in.URL.Path)
	outURL.RawPath = ""
	outURL.RawQuery = in.URL.RawQuery

	out, err := http.NewRequestWithContext(ctx, in.Method, outURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	out.Header = in.Header.Clone()
	removeHopHeaders(out.Header)
	out.ContentLength = int64(len(body))
	out.Host = target.Host

	if clientIP, _, err := net.SplitHostPort(in.RemoteAddr); err == nil {
		if prior := in.Header.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		out.Header.Set("X-Forwarded-For", clientIP)
	}
	out.Header.Set("X-Forwarded-Host", in.Host)
	tracing.InjectHTTPHeaders(ctx, out.Header)

	resp, err := p.client.Do(out)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(respBody)) > p.maxBody {
		return nil, errResponseTooLarge
	}

	header := resp.Header.Clone()
	removeHopHeaders(header)
	header.Del("Content-Length")

	upstream := &upstreamResponse{status: resp.StatusCode, header: header, body: respBody}
	if resp.StatusCode >= http.StatusInternalServerError {
		return upstream, &statusError{status: resp.StatusCode}
	}
	return upstream, nil
}

func removeHopHeaders(h http.Header) {
	for _, name := range h.Values("Connection") {
		for _, field := range strings.Split(name, ",") {
			h.Del(strings.TrimSpace(field))
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
