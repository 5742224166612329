// Package bulk drives many assets through the lifecycle state machine in one
// run, tolerating per-item failure and producing a deterministic summary.
package bulk

import (
	dErrors "ecotrace/pkg/domainerrors"
)

// Kind names the transition a bulk run applies to every item.
type Kind string

const (
	KindRegister Kind = "register"
	KindSanitize Kind = "sanitize"
	KindRecycle  Kind = "recycle"
	KindTransfer Kind = "transfer"
)

// ParseKind validates a transition kind from the transport layer. An unknown
// kind is the one malformed-request case RunBulk refuses outright.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRegister, KindSanitize, KindRecycle, KindTransfer:
		return Kind(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown bulk operation kind %q", s)
	}
}
