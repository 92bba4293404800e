package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies gateway failures
type Kind string

const (
	// KindConnectivity indicates the environment is unreachable or the session expired
	KindConnectivity Kind = "connectivity"
	// KindNotFound indicates the category or entry is absent at fetch time
	KindNotFound Kind = "not_found"
	// KindUnsupported indicates the category is not available in the environment
	KindUnsupported Kind = "unsupported"
	// KindOversized indicates the output exceeded the configured ceiling
	KindOversized Kind = "oversized"
	// KindTimeout indicates the call exceeded the configured timeout
	KindTimeout Kind = "timeout"
	// KindParse indicates the gateway returned non-conforming output
	KindParse Kind = "parse"
	// KindCommand is any other failure of the external command
	KindCommand Kind = "command"
)

// Sentinel errors, matched by Kind with errors.Is
var (
	ErrConnectivity        = &Error{Kind: KindConnectivity, Message: "environment unreachable or session expired"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnsupportedCategory = &Error{Kind: KindUnsupported, Message: "category not supported in this environment"}
	ErrOversized           = &Error{Kind: KindOversized, Message: "output exceeds size ceiling"}
	ErrTimeout             = &Error{Kind: KindTimeout, Message: "operation timed out"}
	ErrParse               = &Error{Kind: KindParse, Message: "unparseable gateway output"}
)

// Error is a classified gateway failure
type Error struct {
	Kind    Kind
	Op      string
	Env     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Env != "" {
			fmt.Fprintf(&b, " [%s]", e.Env)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil && (e.Message == "" || !strings.Contains(e.Message, e.Err.Error())) {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Hint returns a short human-readable suggestion for resource failures
func (e *Error) Hint() string {
	switch e.Kind {
	case KindOversized:
		return "the artifact is too large to display; raise gateway.max_output_bytes or inspect it directly"
	case KindTimeout:
		return "the environment did not answer in time; retry or raise gateway.timeout"
	case KindConnectivity:
		return "re-authenticate the environment and validate it again"
	case KindNotFound:
		return "it may have been removed since the list was loaded"
	default:
		return ""
	}
}

// KindOf returns the Kind of err, or "" when err is not a gateway error
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsUnsupported reports whether err means the category is unavailable
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedCategory)
}

// IsNotFound reports whether err means the category or entry is absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// HintFor returns the hint of a gateway error, or ""
func HintFor(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Hint()
	}
	return ""
}

// Classifier maps external error names and messages onto a Kind
type Classifier struct {
	Unsupported  []string
	NotFound     []string
	Connectivity []string
}

// DefaultClassifier returns markers matching the external CLI's error texts
func DefaultClassifier() Classifier {
	return Classifier{
		Unsupported: []string{
			"INVALID_TYPE",
			"not supported",
			"not available for this organization",
			"Unknown type name",
			"UnsupportedType",
		},
		NotFound: []string{
			"NOT_FOUND",
			"not found in org",
			"No results found",
			"Nothing retrieved",
			"NoSourceBackedComponents",
			"does not exist",
		},
		Connectivity: []string{
			"NamedOrgNotFound",
			"NoOrgFound",
			"NoDefaultEnvError",
			"INVALID_SESSION_ID",
			"RefreshTokenAuthError",
			"invalid_grant",
			"expired",
			"ECONNREFUSED",
			"ENOTFOUND",
			"getaddrinfo",
		},
	}
}

// Classify returns the Kind matching name or message, KindCommand otherwise.
// Unsupported markers are checked first since they are the non-fatal case.
func (c Classifier) Classify(name, message string) Kind {
	text := name + " " + message
	switch {
	case containsAny(text, c.Unsupported):
		return KindUnsupported
	case containsAny(text, c.Connectivity):
		return KindConnectivity
	case containsAny(text, c.NotFound):
		return KindNotFound
	default:
		return KindCommand
	}
}

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
