package contract

import (
	"context"
	"errors"
	"strings"
)

// IsRateLimited reports provider throttling (HTTP 429 or JSON-RPC -32005).
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "-32005")
}

// ClassifyError returns a concise, user-facing reason for a failed call.
func (q *Qatar) ClassifyError(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "[TIMEOUT] " + err.Error()
	}
	s := err.Error()
	if IsRateLimited(err) {
		return "[RATE_LIMIT] provider throttled the request"
	}
	if i := strings.Index(s, "execution reverted"); i >= 0 {
		rest := strings.TrimSpace(strings.TrimPrefix(s[i+len("execution reverted"):], ":"))
		if rest != "" {
			return "[REVERT] " + rest
		}
		return "[REVERT] execution reverted"
	}
	if q != nil && q.caller != nil && ctx.Err() == nil {
		if code, e := q.caller.CodeAt(ctx, q.address, nil); e == nil && len(code) == 0 {
			return "[NOT_CONTRACT] no bytecode at address"
		}
	}
	return "[RPC] " + s
}

// Reason strips the classification tag, leaving text fit for a status line.
func Reason(classified string) string {
	if strings.HasPrefix(classified, "[") {
		if i := strings.Index(classified, "] "); i > 0 {
			return classified[i+2:]
		}
	}
	return classified
}
