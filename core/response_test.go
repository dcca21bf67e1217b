package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseIsSuccessful(t *testing.T) {
	req := NewRequest(MethodGET, "https://example.com")
	cases := map[int]bool{
		199: false,
		200: true,
		204: true,
		299: true,
		300: false,
		404: false,
		500: false,
	}
	for status, want := range cases {
		resp := NewResponse(req, status, NewHeaders(), nil)
		assert.Equal(t, want, resp.IsSuccessful(), "status %d", status)
	}
}

func TestNewResponseNoBodyHasNoBody(t *testing.T) {
	req := NewRequest(MethodGET, "https://example.com")
	resp := NewResponseNoBody(req, 304, NewHeaders())
	assert.False(t, resp.HasBody)
	assert.Nil(t, resp.Body)
}

func TestResponseWithBodySetsHasBody(t *testing.T) {
	req := NewRequest(MethodGET, "https://example.com")
	resp := NewResponseNoBody(req, 200, NewHeaders())
	resp = resp.WithBody([]byte("payload"))

	assert.True(t, resp.HasBody)
	assert.Equal(t, []byte("payload"), resp.Body)
}
