package api

import (
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gndm/ytGateway/internal/logger"
	"github.com/gndm/ytGateway/internal/resolver"
	"github.com/labstack/echo/v4"
)

const chunkSize = 8192

var unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)

var quotedStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

type attachment struct {
	kind        resolver.Kind
	contentType string
	filename    func(title string) string
	failure     string
}

// SanitizeTitle removes every character outside letters, digits, space,
// underscore and hyphen.
func SanitizeTitle(title string) string {
	return unsafeTitleChars.ReplaceAllString(title, "")
}

// contentDisposition builds an attachment header for filename. Quotes and
// backslashes are escaped and control characters dropped so the value stays
// a single valid quoted-string.
func contentDisposition(filename string) string {
	filename = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, filename)
	return `attachment; filename="` + quotedStringEscaper.Replace(filename) + `"`
}

// sendAttachment looks up the title, opens the stream and copies it to the
// client. Failures before the first byte become a plain 500; once bytes
// have been committed the connection is aborted instead.
func (gateway *Gateway) sendAttachment(ec echo.Context, loc string, a attachment) error {
	ctx := ec.Request().Context()

	info, err := gateway.resolver.Info(ctx, loc)
	if err != nil {
		logFailure(ec, err)
		return ec.String(http.StatusInternalServerError, a.failure)
	}

	stream, err := gateway.resolver.Stream(ctx, loc, a.kind)
	if err != nil {
		logFailure(ec, err)
		return ec.String(http.StatusInternalServerError, a.failure)
	}
	defer stream.Close()

	res := ec.Response()
	res.Header().Set(echo.HeaderContentDisposition, contentDisposition(a.filename(info.Title)))
	res.Header().Set(echo.HeaderContentType, a.contentType)

	written, err := copyChunked(res, stream)
	if err == nil {
		log.Emit(logger.DEBUG, "Sent %d bytes of %s for %s\n", written, a.kind, loc)
		return nil
	}

	logFailure(ec, resolver.Fail("stream", resolver.ReasonUpstream, err))
	if !res.Committed {
		res.Header().Del(echo.HeaderContentDisposition)
		res.Header().Del(echo.HeaderContentType)
		return ec.String(http.StatusInternalServerError, a.failure)
	}

	// Headers are already sent; cut the connection so the download shows as truncated.
	panic(http.ErrAbortHandler)
}

// copyChunked forwards r to res one chunk at a time, flushing after each
// write so bytes reach the client as they arrive.
func copyChunked(res *echo.Response, r io.Reader) (int64, error) {
	buffer := make([]byte, chunkSize)
	var written int64
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			if _, writeErr := res.Write(buffer[:n]); writeErr != nil {
				return written, writeErr
			}
			written += int64(n)
			res.Flush()
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
