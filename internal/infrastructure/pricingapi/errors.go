package pricingapi

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindParse     Kind = "parse"
)

// Sentinels for errors.Is against an *UpstreamError of the same kind.
var (
	ErrTransport = errors.New("upstream transport error")
	ErrStatus    = errors.New("upstream status error")
	ErrParse     = errors.New("upstream parse error")
)

// UpstreamError is returned by every Client call that fails.
type UpstreamError struct {
	Kind Kind
	Op   string
	// Status is the HTTP status for KindStatus, or the envelope code when
	// the upstream answered 200 with a failure code.
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: upstream %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}

// KindOf returns the kind of an upstream error in err's chain, or "".
func KindOf(err error) Kind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}
