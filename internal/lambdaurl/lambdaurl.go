// Package lambdaurl runs an http.Handler behind an AWS Lambda function URL
// configured for response streaming.
package lambdaurl

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
)

// HandlerFunc is the signature lambda.Start expects for streaming function URLs.
type HandlerFunc func(context.Context, events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error)

// ErrAborted is reported to the body reader when the handler aborts mid-response.
var ErrAborted = errors.New("handler aborted response")

// New adapts h. The returned function yields as soon as h commits its status
// line; the body keeps streaming through a pipe until h returns.
func New(h http.Handler) HandlerFunc {
	return func(ctx context.Context, event events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error) {
		req, err := newRequest(ctx, event)
		if err != nil {
			return nil, err
		}

		pr, pw := io.Pipe()
		w := &streamWriter{header: make(http.Header), body: pw, ready: make(chan struct{})}

		go func() {
			defer func() {
				if r := recover(); r != nil {
					w.commit(http.StatusInternalServerError)
					pw.CloseWithError(fmt.Errorf("%w: %v", ErrAborted, r))
					return
				}
				w.commit(http.StatusOK)
				pw.Close()
			}()
			h.ServeHTTP(w, req)
		}()

		select {
		case <-w.ready:
		case <-ctx.Done():
			pr.CloseWithError(ctx.Err())
			return nil, ctx.Err()
		}

		return &events.LambdaFunctionURLStreamingResponse{
			StatusCode: w.status,
			Headers:    flattenHeader(w.sent),
			Cookies:    w.sent.Values("Set-Cookie"),
			Body:       pr,
		}, nil
	}
}

func newRequest(ctx context.Context, event events.LambdaFunctionURLRequest) (*http.Request, error) {
	var body io.Reader = strings.NewReader(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding request body: %w", err)
		}
		body = strings.NewReader(string(decoded))
	}

	target := event.RawPath
	if target == "" {
		target = "/"
	}
	if event.RawQueryString != "" {
		target += "?" + event.RawQueryString
	}
	u, err := url.ParseRequestURI(target)
	if err != nil {
		return nil, fmt.Errorf("parsing request target %q: %w", target, err)
	}

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range event.Cookies {
		req.Header.Add("Cookie", c)
	}
	req.Host = req.Header.Get("Host")
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.RequestURI = u.RequestURI()
	return req, nil
}

// flattenHeader joins repeated values, leaving cookies to the Cookies field.
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if k == "Set-Cookie" {
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// streamWriter is an http.ResponseWriter whose body is a pipe. The header
// map is snapshotted into sent when the status is committed; later header
// changes are ignored, as they would be by net/http.
type streamWriter struct {
	header http.Header
	sent   http.Header
	body   *io.PipeWriter
	status int
	once   sync.Once
	ready  chan struct{}
}

func (w *streamWriter) Header() http.Header { return w.header }

func (w *streamWriter) WriteHeader(status int) { w.commit(status) }

func (w *streamWriter) Write(b []byte) (int, error) {
	w.commit(http.StatusOK)
	return w.body.Write(b)
}

// Flush is a no-op; every Write already hands its bytes to the reader.
func (w *streamWriter) Flush() {}

func (w *streamWriter) commit(status int) {
	w.once.Do(func() {
		w.status = status
		w.sent = w.header.Clone()
		close(w.ready)
	})
}
