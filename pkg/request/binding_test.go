package request

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinding_Merge(t *testing.T) {
	stored := Binding{
		Target:  "pokemon",
		Method:  "GET",
		Query:   url.Values{"limit": {"25"}},
		Headers: http.Header{"Accept": {"application/json"}, "X-Trace": {"stored"}},
	}

	t.Run("no override keeps stored values", func(t *testing.T) {
		got := stored.merge(Binding{})
		assert.Equal(t, stored, got)
	})

	t.Run("override replaces scalars and query", func(t *testing.T) {
		got := stored.merge(Binding{
			Target: "pokemon/ditto",
			Method: "POST",
			Body:   map[string]string{"name": "ditto"},
			Query:  url.Values{"offset": {"25"}},
		})
		assert.Equal(t, "pokemon/ditto", got.Target)
		assert.Equal(t, "POST", got.Method)
		assert.Equal(t, map[string]string{"name": "ditto"}, got.Body)
		assert.Equal(t, url.Values{"offset": {"25"}}, got.Query)
	})

	t.Run("headers merge with override winning", func(t *testing.T) {
		got := stored.merge(Binding{Headers: http.Header{"x-trace": {"override"}, "X-New": {"1"}}})
		assert.Equal(t, "application/json", got.Headers.Get("Accept"))
		assert.Equal(t, "override", got.Headers.Get("X-Trace"))
		assert.Equal(t, "1", got.Headers.Get("X-New"))
		assert.Equal(t, "stored", stored.Headers.Get("X-Trace"), "stored binding must not change")
	})

	t.Run("headers on empty stored binding", func(t *testing.T) {
		got := Binding{}.merge(Binding{Headers: http.Header{"X-New": {"1"}}})
		assert.Equal(t, "1", got.Headers.Get("X-New"))
	})
}

func TestBinding_Request(t *testing.T) {
	b := Binding{Target: "pokemon/1", Method: "GET", Query: url.Values{"a": {"b"}}}
	req := b.request()
	assert.Equal(t, "pokemon/1", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, url.Values{"a": {"b"}}, req.Query)
}
