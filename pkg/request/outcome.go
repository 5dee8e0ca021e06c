package request

// FailureKind classifies why a call produced no payload.
type FailureKind int

const (
	// FailureNone means the call succeeded or has not settled.
	FailureNone FailureKind = iota

	// FailureCancelled means the call was superseded or cancelled. It is
	// never reported as an error.
	FailureCancelled

	// FailureTransport means no response was received (network, timeout).
	FailureTransport

	// FailureServer means a non-2xx response was received.
	FailureServer

	// FailureUnknown covers everything else, e.g. an undecodable body.
	FailureUnknown
)

// String implements fmt.Stringer.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureCancelled:
		return "cancelled"
	case FailureTransport:
		return "transport"
	case FailureServer:
		return "server"
	case FailureUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Outcome is the in-progress or terminal state of a call. Once Loading is
// false exactly one of Payload and ErrorMessage is set, unless the call was
// cancelled, in which case neither is.
type Outcome[T any] struct {
	Payload      *T
	Loading      bool
	ErrorMessage string
	StatusCode   int
	Kind         FailureKind
	Cancelled    bool
}

// OK reports whether the call settled with a payload.
func (o Outcome[T]) OK() bool {
	return !o.Loading && o.Payload != nil
}

// Failed reports whether the call settled with an error message.
func (o Outcome[T]) Failed() bool {
	return !o.Loading && o.ErrorMessage != ""
}

func cancelledOutcome[T any]() Outcome[T] {
	return Outcome[T]{Kind: FailureCancelled, Cancelled: true}
}
