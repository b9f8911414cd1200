package wire

import "fmt"

// Kind is the discriminant attached to every error the protocol layer can
// produce. It is carried alongside the human-readable message so callers
// (the dispatcher's response mapper, the adapter, the SDK) can branch on
// error class without parsing text.
type Kind string

const (
	KindUnknownCommand       Kind = "UnknownCommand"
	KindInvalidParams        Kind = "InvalidParams"
	KindNotFound             Kind = "NotFound"
	KindUnsupportedInHeadless Kind = "UnsupportedInHeadless"
	KindHandlerError         Kind = "HandlerError"
	KindPayloadTooLarge      Kind = "PayloadTooLarge"
	KindTimeout              Kind = "Timeout"
	KindAddressInUse         Kind = "AddressInUse"
	KindBindFailed           Kind = "BindFailed"
	KindAlreadyRunning       Kind = "AlreadyRunning"
	KindBusyState            Kind = "BusyState"
	KindConnectionClosed     Kind = "ConnectionClosed"
	KindDecodeError          Kind = "DecodeError"
)

// Error is the typed error carried through the dispatcher and server layers.
// Source, when set, names the command `type` the error originated from so
// the response's "source" diagnostic field (§3) can be populated without
// re-deriving it at the call site.
type Error struct {
	Kind    Kind
	Source  string
	Message string
	Err     error // underlying cause, if any; used only for %w wrapping
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error with the given kind and a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that preserves err for errors.Is/As while attaching
// a Kind and a human message.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
