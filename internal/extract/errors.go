package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
)

// Kind classifies extraction failures for user messaging.
type Kind string

const (
	KindConfig     Kind = "config"
	KindAuth       Kind = "auth"
	KindQuota      Kind = "quota"
	KindPermission Kind = "permission"
	KindParse      Kind = "parse"
	KindBackend    Kind = "backend"
)

// ErrEmptyTranscript is returned for blank input; nothing is sent.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Error is a classified extraction failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Code       codes.Code
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gemini %s error", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d", e.StatusCode)
		if e.Code != codes.OK && e.Code != codes.Unknown {
			fmt.Fprintf(&b, ", %s", e.Code)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var extractErr *Error
	if errors.As(err, &extractErr) {
		return extractErr.Kind
	}
	return ""
}

// IsKind reports whether err is an extraction error of kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

type apiErrorBody struct {
	Error struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Status  json.RawMessage `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

// classifyHTTPError maps a non-200 Gemini response to an *Error.
func classifyHTTPError(statusCode int, body []byte) *Error {
	out := &Error{Kind: KindBackend, StatusCode: statusCode, Code: codes.Unknown}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		out.Message = parsed.Error.Message
		var code codes.Code
		if len(parsed.Error.Status) > 0 && code.UnmarshalJSON(parsed.Error.Status) == nil {
			out.Code = code
		}
	} else {
		out.Message = strings.TrimSpace(string(body))
	}

	var reasons []string
	for _, d := range parsed.Error.Details {
		if d.Reason != "" {
			reasons = append(reasons, d.Reason)
		}
	}
	haystack := strings.ToLower(out.Message + " " + strings.Join(reasons, " "))

	switch {
	case strings.Contains(haystack, "api_key_invalid"),
		strings.Contains(haystack, "api_key_expired"),
		strings.Contains(haystack, "api key not valid"),
		strings.Contains(haystack, "invalid api key"),
		strings.Contains(haystack, "api key expired"),
		statusCode == http.StatusUnauthorized,
		out.Code == codes.Unauthenticated:
		out.Kind = KindAuth
	case statusCode == http.StatusTooManyRequests,
		out.Code == codes.ResourceExhausted,
		strings.Contains(haystack, "billing"),
		strings.Contains(haystack, "quota"):
		out.Kind = KindQuota
	case statusCode == http.StatusForbidden,
		statusCode == http.StatusNotFound,
		out.Code == codes.PermissionDenied,
		out.Code == codes.NotFound:
		out.Kind = KindPermission
	}
	return out
}
