package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

const MaxBodySize = 16 << 20

var ErrBodyTooLarge = errors.New("response body too large")

func ReadResponseBody(resp *http.Response) ([]byte, error) {
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if nil != err {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if len(respBody) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}

	if len(respBody) == 0 {
		return nil, errors.New("unexpected empty response body")
	}

	return respBody, nil
}

// Snippet returns at most n bytes of b starting at offset, cut on a rune
// boundary, for error context.
func Snippet(b []byte, offset, n int) string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(b) {
		return ""
	}

	end := min(offset+n, len(b))
	for end > offset && end < len(b) && !utf8.RuneStart(b[end]) {
		end--
	}

	return string(b[offset:end])
}
