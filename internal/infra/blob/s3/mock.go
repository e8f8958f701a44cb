package s3

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gardencore/internal/blob/core"
)

// mockModified is the fixed Last-Modified reported by the fake.
var mockModified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewMockForTests returns a Store backed by an in-memory fake S3 transport
// covering Head, Get, Put, Delete and ListObjectsV2.
func NewMockForTests() *Store {
	return newStore(newMockClient(&mockTransport{objects: make(map[string]mockObject)}), "mock-bucket", "")
}

func newMockClient(rt http.RoundTripper) *s3.Client {
	return s3.New(s3.Options{
		Region:                     DefaultRegion,
		Credentials:                credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:                 &http.Client{Transport: rt},
		UsePathStyle:               true,
		BaseEndpoint:               aws.String("https://mock.s3.local"),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
}

type mockObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

type mockTransport struct {
	mu      sync.Mutex
	objects map[string]mockObject
	// pageSize splits list responses when positive.
	pageSize int
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req), nil
	}
	switch req.Method {
	case http.MethodHead:
		obj, ok := m.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		return respond(http.StatusOK, objectHeaders(obj), nil), nil
	case http.MethodGet:
		obj, ok := m.objects[key]
		if !ok {
			body := []byte("<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>")
			return respond(http.StatusNotFound, http.Header{"Content-Type": {"application/xml"}}, body), nil
		}
		return respond(http.StatusOK, objectHeaders(obj), obj.body), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		md := make(map[string]string)
		for name, values := range req.Header {
			if lower := strings.ToLower(name); strings.HasPrefix(lower, "x-amz-meta-") && len(values) > 0 {
				md[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
			}
		}
		m.objects[key] = mockObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: md}
		h := http.Header{}
		h.Set("ETag", strconv.Quote(core.ETag(body)))
		return respond(http.StatusOK, h, nil), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockTransport) list(req *http.Request) *http.Response {
	q := req.URL.Query()
	prefix := q.Get("prefix")
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if tok := q.Get("continuation-token"); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	end := len(keys)
	if m.pageSize > 0 && start+m.pageSize < end {
		end = start + m.pageSize
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	if end < len(keys) {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", end)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		obj := m.objects[k]
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><ETag>&quot;%s&quot;</ETag><LastModified>%s</LastModified></Contents>",
			k, len(obj.body), core.ETag(obj.body), mockModified.Format(time.RFC3339))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, []byte(b.String()))
}

func objectHeaders(obj mockObject) http.Header {
	h := http.Header{}
	h.Set("Content-Length", strconv.Itoa(len(obj.body)))
	h.Set("Content-Type", obj.contentType)
	h.Set("ETag", strconv.Quote(core.ETag(obj.body)))
	h.Set("Last-Modified", mockModified.Format(http.TimeFormat))
	for k, v := range obj.metadata {
		h.Set("X-Amz-Meta-"+k, v)
	}
	return h
}

func respond(status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body))}
}

// decodeChunked unwraps a single-chunk aws-chunked payload:
// <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || size <= 0 || int64(len(parts[1])) != size || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}
