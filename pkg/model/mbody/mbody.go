// Package mbody models the request body as a closed tagged union.
// The Kind tag decides which payload fields are meaningful.
package mbody

import (
	"net/url"
	"sort"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/goccy/go-json"
)

type BodyKind int8

const (
	BodyKindNone BodyKind = iota
	BodyKindJSON
	BodyKindText
	BodyKindXML
	BodyKindFormData
	BodyKindURLEncoded
)

const (
	MimeJSON           = "application/json"
	MimeXML            = "application/xml"
	MimeTextPlain      = "text/plain"
	MimeFormUrlEncoded = "application/x-www-form-urlencoded"
)

type Body struct {
	Kind BodyKind

	// JSON payload
	JSON map[string]any

	// Text and XML payload
	Text        string
	ContentType string

	// FormData and URLEncoded payload
	Fields map[string]string
	// Files maps a multipart field name to a file path. Reserved: form-data
	// serialization is not supported yet and fails loudly.
	Files map[string]string
}

func None() Body {
	return Body{Kind: BodyKindNone}
}

func JSON(data map[string]any) Body {
	return Body{Kind: BodyKindJSON, JSON: data}
}

func Text(content, contentType string) Body {
	return Body{Kind: BodyKindText, Text: content, ContentType: contentType}
}

func XML(content string) Body {
	return Body{Kind: BodyKindXML, Text: content}
}

func FormData(fields, files map[string]string) Body {
	return Body{Kind: BodyKindFormData, Fields: fields, Files: files}
}

func URLEncoded(fields map[string]string) Body {
	return Body{Kind: BodyKindURLEncoded, Fields: fields}
}

// Serialize renders the body to transport bytes plus the content type it
// mandates. A none body yields (nil, "", nil) so no header is added.
func (b Body) Serialize() ([]byte, string, error) {
	switch b.Kind {
	case BodyKindNone:
		return nil, "", nil
	case BodyKindJSON:
		data, err := json.Marshal(b.JSON)
		if err != nil {
			return nil, "", apierr.NewBuildErrorCause("body", "marshal json body", err)
		}
		return data, MimeJSON, nil
	case BodyKindText:
		contentType := b.ContentType
		if contentType == "" {
			contentType = MimeTextPlain
		}
		return []byte(b.Text), contentType, nil
	case BodyKindXML:
		return []byte(b.Text), MimeXML, nil
	case BodyKindURLEncoded:
		values := make(url.Values, len(b.Fields))
		for k, v := range b.Fields {
			values.Set(k, v)
		}
		return []byte(values.Encode()), MimeFormUrlEncoded, nil
	case BodyKindFormData:
		return nil, "", apierr.NewBuildError("body", "multipart form-data bodies are not supported")
	default:
		return nil, "", apierr.NewBuildError("body", "unknown body kind")
	}
}

// FieldKeys returns the declared field names in stable order.
func (b Body) FieldKeys() []string {
	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
