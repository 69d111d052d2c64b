package impacted

import "fmt"

type SignalKind string

const (
	// The comparison could not be loaded. Not retryable by the assembler;
	// the caller has to fetch the comparison again.
	Unavailable SignalKind = "unavailable"
	// The payload was present but did not have the expected shape
	Invalid SignalKind = "invalid"
)

type Remediation string

const (
	Reauthenticate Remediation = "reauthenticate"
	Refetch        Remediation = "refetch"
)

// ErrorSignal is returned instead of a render model when a file cannot be
// rendered. It is a value so the caller can show a specific fallback.
type ErrorSignal struct {
	Kind        SignalKind  `json:"kind"`
	Remediation Remediation `json:"remediation"`
	Reason      string      `json:"reason,omitempty"`
}

func (e *ErrorSignal) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("impacted file %s (%s)", e.Kind, e.Remediation)
	}
	return fmt.Sprintf("impacted file %s (%s): %s", e.Kind, e.Remediation, e.Reason)
}

func unavailable(reason string) *ErrorSignal {
	return &ErrorSignal{Kind: Unavailable, Remediation: Reauthenticate, Reason: reason}
}

func invalid(format string, args ...interface{}) *ErrorSignal {
	return &ErrorSignal{Kind: Invalid, Remediation: Refetch, Reason: fmt.Sprintf(format, args...)}
}

// NewUnavailable builds the signal for a comparison that could not be retrieved
// from the provider.
func NewUnavailable(reason string) *ErrorSignal {
	return unavailable(reason)
}
