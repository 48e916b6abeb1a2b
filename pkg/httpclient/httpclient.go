// Package httpclient wraps the shared transport client behind a small
// interface and converts between wire-level values and net/http types.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/compress"
	"golang.org/x/net/html/charset"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const TimeoutRequest = 60 * time.Second

func New() HttpClient {
	return &http.Client{
		Timeout: TimeoutRequest,
	}
}

type Query struct {
	Key   string
	Value string
}

type Header struct {
	Key   string
	Value string
}

type Cookie struct {
	Name  string
	Value string
}

type Request struct {
	Method  string
	URL     string
	Queries []Query
	Headers []Header
	Cookies []Cookie
	Body    []byte
}

type Response struct {
	StatusCode int
	Body       []byte
	Headers    []Header
	Cookies    []Cookie
	Duration   time.Duration
}

func SendRequestWithContext(ctx context.Context, client HttpClient, req *Request) (*http.Response, error) {
	reqRaw, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	qNew := ConvertQueriesToUrl(req.Queries, reqRaw.URL.Query())
	reqRaw.URL.RawQuery = qNew.Encode()
	reqRaw.Header = ConvertHeadersToHttp(req.Headers)
	for _, c := range req.Cookies {
		reqRaw.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return client.Do(reqRaw)
}

// DoRequest sends the request and returns a fully read response: body bytes
// decompressed per Content-Encoding and normalized to UTF-8, headers and
// cookies flattened, duration measured around the round trip.
func DoRequest(ctx context.Context, client HttpClient, req *Request) (Response, error) {
	start := time.Now()
	resp, err := SendRequestWithContext(ctx, client, req)
	if err != nil {
		return Response{}, err
	}
	duration := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	if encoding != "" {
		body, err = compress.DecompressWithContentEncodeStr(body, encoding)
		if err != nil {
			return Response{}, err
		}
	}

	// Convert body to UTF-8 if content-type specifies a charset
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		reader, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err == nil {
			body, err = io.ReadAll(reader)
			if err != nil {
				return Response{}, err
			}
		}
	}

	err = resp.Body.Close()
	if err != nil {
		return Response{}, err
	}

	return Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    ConvertHttpHeaderToHeaders(resp.Header),
		Cookies:    ConvertHttpCookies(resp.Cookies()),
		Duration:   duration,
	}, nil
}

func ConvertHttpHeaderToHeaders(headers http.Header) []Header {
	result := make([]Header, 0, len(headers))
	for key, values := range headers {
		for _, value := range values {
			result = append(result, Header{
				Key:   key,
				Value: value,
			})
		}
	}
	return result
}

func ConvertHeadersToHttp(headers []Header) http.Header {
	result := make(http.Header)
	for _, header := range headers {
		result.Add(header.Key, header.Value)
	}
	return result
}

func ConvertQueriesToUrl(queries []Query, url url.Values) url.Values {
	for _, query := range queries {
		url.Add(query.Key, query.Value)
	}
	return url
}

func ConvertHttpCookies(cookies []*http.Cookie) []Cookie {
	result := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		result = append(result, Cookie{Name: c.Name, Value: c.Value})
	}
	return result
}
