// Package transporthttp is the default core.Transport implementation:
// the terminal sink over net/http.Client (spec §4.6).
package transporthttp

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kestrelnet/kestrel/core"
)

// Transport is the default HTTP sink. It owns network I/O: transport
// cancellation surfaces as core.Cancelled(), every other failure as
// core.Transport(err); a response with no status line yields
// core.InvalidResponse() (spec §4.6).
type Transport struct {
	client *http.Client
}

// New builds a Transport over client. A nil client is replaced by a
// zero-value net/http.Client, which has no client-level timeout
// (per-request context deadlines still apply via the timeout interceptor).
func New(client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{client: client}
}

// NewInstrumented wraps client's RoundTripper with otelhttp.NewTransport
// so span propagation flows through the sink without core depending on
// OTel directly (spec §9's "opaque transport" design, SPEC_FULL §4.6).
func NewInstrumented(client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	rt := client.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(rt)
	return &Transport{client: client}
}

func (t *Transport) Execute(ctx context.Context, req core.Request) (core.Response, error) {
	var body io.Reader
	data, contentType, err := req.Body.Encode()
	if err != nil {
		return core.Response{}, core.Transport(err)
	}
	if len(data) > 0 {
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), req.URL, body)
	if err != nil {
		return core.Response{}, core.Transport(err)
	}

	req.Headers.Range(func(name, value string) {
		httpReq.Header.Set(name, value)
	})
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return core.Response{}, core.Cancelled()
		}
		return core.Response{}, core.Transport(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == 0 {
		return core.Response{}, core.InvalidResponse()
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return core.Response{}, core.Cancelled()
		}
		return core.Response{}, core.Transport(err)
	}

	headers := core.NewHeaders()
	for name := range httpResp.Header {
		headers.Set(name, httpResp.Header.Get(name))
	}

	return core.NewResponse(req, httpResp.StatusCode, headers, respBody), nil
}
