package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
)

// BodyKind selects which variant of Body is populated.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyRaw
	BodyForm
	BodyJSON
	BodyMultipart
)

// MultipartPart is one field of a multipart/form-data body. Filename may
// be empty for a plain form field.
type MultipartPart struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Body is the closed set of request body variants from spec §3. Encode
// is a pure function producing the wire bytes and content-type header
// value for whichever variant is set.
type Body struct {
	Kind        BodyKind
	Raw         []byte
	RawType     string
	Form        url.Values
	JSON        []byte
	Multipart   []MultipartPart
}

// RawBody builds a raw byte body with an explicit content type.
func RawBody(data []byte, contentType string) Body {
	return Body{Kind: BodyRaw, Raw: data, RawType: contentType}
}

// FormBody builds a application/x-www-form-urlencoded body.
func FormBody(values url.Values) Body {
	return Body{Kind: BodyForm, Form: values}
}

// JSONBody marshals v to a JSON body.
func JSONBody(v interface{}) (Body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Body{}, fmt.Errorf("encode json body: %w", err)
	}
	return Body{Kind: BodyJSON, JSON: data}, nil
}

// MultipartBody builds a multipart/form-data body from parts.
func MultipartBody(parts []MultipartPart) Body {
	return Body{Kind: BodyMultipart, Multipart: parts}
}

// IsEmpty reports whether no body variant is set.
func (b Body) IsEmpty() bool {
	return b.Kind == BodyNone
}

// Encode produces the wire bytes and content-type for this body. It is a
// pure function: calling it twice on the same Body yields identical
// output (multipart boundaries are derived from a fixed, not random,
// value so encoding stays deterministic for caching/retry re-encodes).
func (b Body) Encode() (data []byte, contentType string, err error) {
	switch b.Kind {
	case BodyNone:
		return nil, "", nil
	case BodyRaw:
		return b.Raw, b.RawType, nil
	case BodyForm:
		return []byte(b.Form.Encode()), "application/x-www-form-urlencoded", nil
	case BodyJSON:
		return b.JSON, "application/json", nil
	case BodyMultipart:
		return encodeMultipart(b.Multipart)
	default:
		return nil, "", fmt.Errorf("unknown body kind %d", b.Kind)
	}
}

func encodeMultipart(parts []MultipartPart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary("kestrel-boundary-7f3a9c2e"); err != nil {
		return nil, "", fmt.Errorf("set multipart boundary: %w", err)
	}
	for _, p := range parts {
		var fw interface {
			Write([]byte) (int, error)
		}
		var err error
		if p.Filename != "" {
			fw, err = w.CreateFormFile(p.Name, p.Filename)
		} else {
			fw, err = w.CreateFormField(p.Name)
		}
		if err != nil {
			return nil, "", fmt.Errorf("create multipart part %q: %w", p.Name, err)
		}
		if _, err := fw.Write(p.Data); err != nil {
			return nil, "", fmt.Errorf("write multipart part %q: %w", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
