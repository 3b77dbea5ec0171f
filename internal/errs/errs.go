// Package errs defines the error taxonomy shared by the bot, the view engine
// and the store.
//
// Every typed error matches its sentinel through errors.Is, so callers can
// branch on the category without caring about the concrete type:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrInvalidElement = errors.New("invalid element")
	ErrDelivery       = errors.New("delivery failed")
)

// NotFoundError reports an id lookup miss.
type NotFoundError struct {
	Kind string
	ID   string
}

func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	kind := strings.TrimSpace(e.Kind)
	if kind == "" {
		kind = "entity"
	}
	if strings.TrimSpace(e.ID) == "" {
		return kind + " not found"
	}
	return fmt.Sprintf("%s `%s` not found", kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed structured input. Template, when set, is
// the expected input format and is shown back to the user verbatim.
type ValidationError struct {
	Reason   string
	Template string
}

func Validation(reason, template string) *ValidationError {
	return &ValidationError{Reason: reason, Template: template}
}

func (e *ValidationError) Error() string {
	if e.Template == "" {
		return e.Reason
	}
	return e.Reason + "\nPlease use the following format:\n" + e.Template
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type AuthorizationError struct {
	ActorID   string
	InvokerID string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s may not interact with a view owned by %s", e.ActorID, e.InvokerID)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAuthorization }

// InvalidElementError means an activation referenced an element id with no
// registered transition. It is a programming defect, never a user error.
type InvalidElementError struct {
	View      string
	ElementID string
}

func (e *InvalidElementError) Error() string {
	return fmt.Sprintf("view %s: no transition registered for element %q", e.View, e.ElementID)
}

func (e *InvalidElementError) Is(target error) bool { return target == ErrInvalidElement }

// DeliveryError wraps a transport failure while sending or editing an artifact.
type DeliveryError struct {
	Op  string
	Err error
}

func Delivery(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return err
	}
	return &DeliveryError{Op: op, Err: err}
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// UserMessage renders err as the single reply a user sees for a failed
// command. Unknown errors collapse into a generic failure notice.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "ERROR: " + ve.Error()
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return "ERROR: " + nf.Error() + "."
	}
	if errors.Is(err, ErrAuthorization) {
		return "You are not allowed to interact with this message."
	}
	return "Something went wrong while handling your request. Please try again."
}
