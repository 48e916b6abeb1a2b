// Package thar turns HAR capture files into API model literals. It sits at
// the capture/codegen boundary: the core never depends on how models are
// authored, only that the produced values satisfy the model shape.
package thar

import (
	"net/url"
	"strings"
	"time"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mapi"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mbody"
	"github.com/goccy/go-json"
)

type HAR struct {
	Log Log `json:"log"`
}

type Log struct {
	Entries []Entry `json:"entries"`
}

type Entry struct {
	StartedDateTime time.Time `json:"startedDateTime"`
	ResourceType    string    `json:"_resourceType"`
	Request         Request   `json:"request"`
	Response        Response  `json:"response"`
}

type Request struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	HTTPVersion string    `json:"httpVersion"`
	Headers     []Header  `json:"headers"`
	Cookies     []Cookie  `json:"cookies"`
	PostData    *PostData `json:"postData,omitempty"`
	QueryString []Query   `json:"queryString"`
}

type Response struct {
	Status      int      `json:"status"`
	StatusText  string   `json:"statusText"`
	HTTPVersion string   `json:"httpVersion"`
	Headers     []Header `json:"headers"`
	Content     Content  `json:"content"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Query struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type PostData struct {
	MimeType string  `json:"mimeType"`
	Text     string  `json:"text"`
	Params   []Param `json:"params,omitempty"`
}

type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

const (
	RawBodyCheck        = "application/json"
	UrlEncodedBodyCheck = "application/x-www-form-urlencoded"
)

func ConvertRaw(data []byte) (*HAR, error) {
	var harFile HAR
	err := json.Unmarshal(data, &harFile)
	if err != nil {
		return nil, err
	}
	return &harFile, nil
}

// ConvertHAR translates every API-looking entry (xhr/fetch) into a model.
func ConvertHAR(har *HAR) ([]*mapi.APIModel, error) {
	var models []*mapi.APIModel
	for _, entry := range har.Log.Entries {
		if !IsXHRRequest(entry) {
			continue
		}
		model, err := convertEntry(entry)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}

// IsXHRRequest reports whether the entry looks like an API call rather than
// a document, script or asset fetch.
func IsXHRRequest(entry Entry) bool {
	if entry.ResourceType == "xhr" || entry.ResourceType == "fetch" {
		return true
	}

	for _, header := range entry.Request.Headers {
		if strings.EqualFold(header.Name, "X-Requested-With") &&
			strings.EqualFold(header.Value, "XMLHttpRequest") {
			return true
		}
	}
	for _, header := range entry.Request.Headers {
		if strings.EqualFold(header.Name, "Content-Type") {
			if strings.Contains(header.Value, "application/json") ||
				strings.Contains(header.Value, "application/xml") ||
				strings.Contains(header.Value, "text/plain") {
				return true
			}
		}
	}
	return false
}

func convertEntry(entry Entry) (*mapi.APIModel, error) {
	parsed, err := url.Parse(entry.Request.URL)
	if err != nil {
		return nil, err
	}

	model := mapi.New(entry.Request.Method+" "+parsed.Path, entry.Request.Method, parsed.Path)
	model.URLPrefix = parsed.Scheme + "://" + parsed.Host

	if len(entry.Request.QueryString) > 0 {
		model.Params = make(map[string]string, len(entry.Request.QueryString))
		for _, q := range entry.Request.QueryString {
			model.Params[q.Name] = q.Value
		}
	}

	headers := extractHeaders(entry.Request.Headers)
	if len(headers) > 0 {
		model.Headers = headers
	}

	if len(entry.Request.Cookies) > 0 {
		model.Cookies = make(map[string]string, len(entry.Request.Cookies))
		for _, c := range entry.Request.Cookies {
			model.Cookies[c.Name] = c.Value
		}
	}

	if entry.Request.PostData != nil {
		model.Body = convertBody(entry.Request.PostData)
	}
	return model, nil
}

func extractHeaders(headers []Header) map[string]string {
	result := make(map[string]string, len(headers))
	for _, header := range headers {
		if len(header.Name) == 0 {
			continue
		}
		// pseudo-headers and the cookie header are carried elsewhere
		if header.Name[0] == ':' || strings.EqualFold(header.Name, "Cookie") {
			continue
		}
		result[header.Name] = header.Value
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func convertBody(post *PostData) mbody.Body {
	mime := post.MimeType
	switch {
	case strings.Contains(mime, RawBodyCheck):
		var data map[string]any
		if err := json.Unmarshal([]byte(post.Text), &data); err == nil {
			return mbody.JSON(data)
		}
		return mbody.Text(post.Text, RawBodyCheck)
	case strings.Contains(mime, UrlEncodedBodyCheck):
		fields := make(map[string]string, len(post.Params))
		for _, p := range post.Params {
			fields[p.Name] = p.Value
		}
		return mbody.URLEncoded(fields)
	case strings.Contains(mime, "xml"):
		return mbody.XML(post.Text)
	case post.Text != "":
		return mbody.Text(post.Text, mime)
	default:
		return mbody.None()
	}
}
