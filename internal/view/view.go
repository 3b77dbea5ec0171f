package view

import (
	"context"
	"errors"
	"strings"

	"studybot/internal/errs"
)

var (
	// ErrDone may be returned by a transition to end the view after the new
	// step has been rendered.
	ErrDone = errors.New("view: done")

	// ErrClosed is returned when an activation targets a view that is no
	// longer live.
	ErrClosed = errors.New("view: closed")
)

// Event is one element activation.
type Event struct {
	ActorID   string
	ElementID string
	Values    []string
}

func (e Event) Value() string {
	if len(e.Values) == 0 {
		return ""
	}
	return e.Values[0]
}

// Transition computes the next step from the current one. Returning an error
// other than ErrDone leaves the step unchanged.
type Transition[S any] func(ctx context.Context, step S, ev Event) (S, error)

// Definition describes an interactive view over a step type S.
//
// Render must be a pure function of the step: it returns the full payload,
// including the element set, for that step.
type Definition[S any] struct {
	Name        string
	Initial     S
	Render      func(step S) Payload
	Transitions map[string]Transition[S]
}

type model interface {
	render() Payload
	apply(ctx context.Context, ev Event) (found bool, err error)
	step() any
	restore(step any)
}

type typedModel[S any] struct {
	def Definition[S]
	cur S
}

func (m *typedModel[S]) render() Payload {
	if m.def.Render == nil {
		return Payload{}
	}
	return m.def.Render(m.cur)
}

func (m *typedModel[S]) apply(ctx context.Context, ev Event) (bool, error) {
	fn, ok := m.def.Transitions[ev.ElementID]
	if !ok || fn == nil {
		return false, nil
	}
	next, err := fn(ctx, m.cur, ev)
	if err != nil && !errors.Is(err, ErrDone) {
		return true, err
	}
	m.cur = next
	return true, err
}

func (m *typedModel[S]) step() any { return m.cur }

func (m *typedModel[S]) restore(step any) {
	if cur, ok := step.(S); ok {
		m.cur = cur
	}
}

// View is the live state of one rendered artifact. It is not safe for
// concurrent use; the engine serializes access through the owning session.
type View struct {
	name     string
	m        model
	elements []Element
	terminal bool
}

func New[S any](def Definition[S]) *View {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = "view"
	}
	return &View{name: name, m: &typedModel[S]{def: def, cur: def.Initial}}
}

func (v *View) Name() string { return v.name }

// Step returns the current step value.
func (v *View) Step() any { return v.m.step() }

func (v *View) Terminal() bool { return v.terminal }

// Elements returns the element set of the last render.
func (v *View) Elements() []Element { return cloneElements(v.elements) }

// Render recomputes the payload and the element set from the current step.
// A terminal view renders with every element disabled.
func (v *View) Render() Payload {
	p := v.m.render().clone()
	if v.terminal {
		for i := range p.Elements {
			p.Elements[i].Disabled = true
		}
	}
	v.elements = cloneElements(p.Elements)
	return p
}

// Apply runs the transition registered for ev.ElementID.
func (v *View) Apply(ctx context.Context, ev Event) error {
	if v.terminal {
		return ErrClosed
	}
	found, err := v.m.apply(ctx, ev)
	if !found {
		return &errs.InvalidElementError{View: v.name, ElementID: ev.ElementID}
	}
	return err
}

// rollback puts the view back on a step taken earlier from Step and
// recomputes its element set.
func (v *View) rollback(step any) {
	v.m.restore(step)
	v.Render()
}

func (v *View) terminate() { v.terminal = true }
