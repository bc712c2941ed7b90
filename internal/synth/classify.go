package synth

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// statusPattern finds the HTTP status in provider error text, e.g.
// "error, status code: 429, status: 429 Too Many Requests, message: ...".
var statusPattern = regexp.MustCompile(`status(?: code)?:? (\d{3})\b`)

// statusCode returns the HTTP status mentioned in err, or 0.
func statusCode(err error) int {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// retryable reports whether err is worth another attempt: rate limiting,
// server errors, and dropped connections. Other 4xx responses are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == 429 || code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset")
}
