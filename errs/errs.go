package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies a failure so handlers can pick a status code and callers
// can branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindState
)

// Error is the failure type every store/pipeline operation returns. Redirect,
// when set, is a flow-control hint ("send the user here") that must survive
// generic error handling unmodified.
type Error struct {
	Kind     Kind
	Message  string
	Redirect string
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// WithRedirect attaches a destination hint and returns the same error.
func (e *Error) WithRedirect(to string) *Error {
	e.Redirect = to
	return e
}

// KindOf returns the Kind of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RedirectOf returns the redirect hint carried by err, if any.
func RedirectOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Redirect
	}
	return ""
}

// Status maps a Kind to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// FromMongo translates driver errors into the taxonomy. Duplicate-key
// violations become Conflicts naming the offending index; everything else is
// passed through raw for operator diagnosis.
func FromMongo(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound("%s", notFoundMsg)
	}
	if mongo.IsDuplicateKeyError(err) {
		return Conflict("%s already exists", dupField(err))
	}
	return err
}

func dupField(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, w := range we.WriteErrors {
			if i := strings.Index(w.Message, "index: "); i >= 0 {
				f := w.Message[i+len("index: "):]
				if j := strings.IndexAny(f, " _"); j > 0 {
					return f[:j]
				}
				return f
			}
		}
	}
	return "field"
}
