package kestrel

import (
	"context"
	"encoding/json"

	"github.com/kestrelnet/kestrel/core"
)

// Decoder turns raw response bytes into a T.
type Decoder[T any] func(body []byte) (T, error)

// Decode executes call and unifies status validation with body
// decoding: success -> T; failure -> exactly one of core.HTTP (non-2xx),
// core.NoData (body required but absent), or core.Decoding (decode
// failed) (spec §6).
func Decode[T any](ctx context.Context, call *Call, decode Decoder[T]) (T, error) {
	var zero T

	resp, err := call.Execute(ctx)
	if err != nil {
		return zero, err
	}
	if !resp.IsSuccessful() {
		return zero, core.HTTP(resp.Status, resp.Body)
	}
	if !resp.HasBody {
		return zero, core.NoData()
	}

	value, decErr := decode(resp.Body)
	if decErr != nil {
		return zero, core.Decoding(decErr)
	}
	return value, nil
}

// DecodeJSON is Decode specialized to JSON-encoded bodies.
func DecodeJSON[T any](ctx context.Context, call *Call) (T, error) {
	return Decode[T](ctx, call, func(body []byte) (T, error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return v, err
		}
		return v, nil
	})
}
