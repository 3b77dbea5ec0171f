package view

// ElementKind tags the variant held by an Element.
type ElementKind int

const (
	KindButton ElementKind = iota + 1
	KindDropdown
)

func (k ElementKind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindDropdown:
		return "dropdown"
	default:
		return "unknown"
	}
}

type Option struct {
	Value string
	Label string
}

// Element is either a button or a single-select dropdown. Label is only used
// by buttons; Options and Placeholder only by dropdowns.
type Element struct {
	Kind     ElementKind
	ID       string
	Disabled bool

	Label string

	Options     []Option
	Placeholder string
}

func Button(id, label string, disabled bool) Element {
	return Element{Kind: KindButton, ID: id, Label: label, Disabled: disabled}
}

func Dropdown(id, placeholder string, options ...Option) Element {
	opts := make([]Option, len(options))
	copy(opts, options)
	return Element{Kind: KindDropdown, ID: id, Placeholder: placeholder, Options: opts}
}

func (e Element) clone() Element {
	out := e
	if e.Options != nil {
		out.Options = make([]Option, len(e.Options))
		copy(out.Options, e.Options)
	}
	return out
}

func cloneElements(in []Element) []Element {
	if in == nil {
		return nil
	}
	out := make([]Element, len(in))
	for i, e := range in {
		out[i] = e.clone()
	}
	return out
}
