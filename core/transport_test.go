package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportFuncAdapter(t *testing.T) {
	var gotCtx context.Context
	var gotReq Request

	fn := TransportFunc(func(ctx context.Context, req Request) (Response, error) {
		gotCtx = ctx
		gotReq = req
		return NewResponse(req, 200, NewHeaders(), []byte("ok")), nil
	})

	ctx := context.WithValue(context.Background(), struct{}{}, "marker")
	req := NewRequest(MethodGET, "https://example.com")

	var transport Transport = fn
	resp, err := transport.Execute(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, req, gotReq)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []byte("ok"), resp.Body)
}
