package request

import (
	"net/http"
	"net/url"

	"github.com/Sternrassler/pokedex-client/pkg/transport"
)

// Binding is the stored configuration of an executor. Overrides passed to
// Execute are merged on top of it for a single call.
type Binding struct {
	// Target is the request URL, absolute or relative to the transport base.
	Target string

	// Method defaults to GET.
	Method string

	// Body is encoded by the transport (JSON unless raw bytes or a reader).
	Body any

	// Query values replace same-named ones already present in Target.
	Query url.Values

	// Headers are merged with the stored ones; override values win.
	Headers http.Header

	// Manual disables the automatic first call on New and Configure.
	Manual bool
}

// merge applies o on top of b. Target, Method, Body and Query replace the
// stored value when set; headers are merged key by key.
func (b Binding) merge(o Binding) Binding {
	out := b
	if o.Target != "" {
		out.Target = o.Target
	}
	if o.Method != "" {
		out.Method = o.Method
	}
	if o.Body != nil {
		out.Body = o.Body
	}
	if o.Query != nil {
		out.Query = o.Query
	}
	if len(o.Headers) > 0 {
		merged := b.Headers.Clone()
		if merged == nil {
			merged = make(http.Header, len(o.Headers))
		}
		for key, values := range o.Headers {
			merged[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
		out.Headers = merged
	}
	return out
}

func (b Binding) request() transport.Request {
	return transport.Request{
		URL:     b.Target,
		Method:  b.Method,
		Body:    b.Body,
		Query:   b.Query,
		Headers: b.Headers,
	}
}
