package domain

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindGateway:
		return "gateway"
	default:
		return "internal"
	}
}

// Error carries a kind and a message that is safe to show to API clients.
// Err holds the underlying cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Gateway(msg string, err error) error { return &Error{Kind: KindGateway, Message: msg, Err: err} }

func Internal(msg string, err error) error { return &Error{Kind: KindInternal, Message: msg, Err: err} }

var (
	ErrCourseNotFound   = NotFound("Course not found!")
	ErrLectureNotFound  = NotFound("Lecture not found")
	ErrPurchaseNotFound = NotFound("Purchase not found")
	ErrProgressNotFound = NotFound("Course progress not found")
	ErrInvalidSignature = &Error{Kind: KindGateway, Message: "Webhook signature verification failed"}

	// ErrVersionConflict is returned by stores when a compare-and-swap loses.
	ErrVersionConflict = errors.New("version conflict")
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return fallback
}
