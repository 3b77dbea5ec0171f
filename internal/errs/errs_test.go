package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{NotFound("flashcard", "abc"), ErrNotFound},
		{Validation("bad", "tpl"), ErrValidation},
		{&AuthorizationError{ActorID: "b", InvokerID: "a"}, ErrAuthorization},
		{&InvalidElementError{View: "pager", ElementID: "x"}, ErrInvalidElement},
		{Delivery("send", errors.New("boom")), ErrDelivery},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("handler: %w", tc.err)
		if !errors.Is(wrapped, tc.sentinel) {
			t.Fatalf("errors.Is(%v, %v) = false", wrapped, tc.sentinel)
		}
	}
}

func TestNotFoundIsNotDelivery(t *testing.T) {
	if errors.Is(NotFound("alert", "x"), ErrDelivery) {
		t.Fatalf("not found must not match delivery")
	}
	if errors.Is(Delivery("edit", errors.New("reset")), ErrNotFound) {
		t.Fatalf("delivery must not match not found")
	}
}

func TestDeliveryDoesNotDoubleWrap(t *testing.T) {
	inner := Delivery("send", errors.New("x"))
	outer := Delivery("edit", inner)
	if outer != inner {
		t.Fatalf("expected the existing delivery error to be returned as is")
	}
	if Delivery("send", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestUserMessageEchoesTemplate(t *testing.T) {
	tpl := "# Q: <question>\n## A: <answer>"
	msg := UserMessage(fmt.Errorf("add: %w", Validation("Invalid flashcard format.", tpl)))
	if !strings.HasSuffix(msg, tpl) {
		t.Fatalf("template not echoed: %q", msg)
	}
	if !strings.HasPrefix(msg, "ERROR: Invalid flashcard format.") {
		t.Fatalf("unexpected prefix: %q", msg)
	}
}
