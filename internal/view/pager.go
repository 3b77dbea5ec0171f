package view

import "context"

const (
	PreviousID = "previous"
	NextID     = "next"
)

// NavButtons returns the previous/next buttons for page out of count.
func NavButtons(page, count int, prevLabel, nextLabel string) (prev, next Element) {
	if prevLabel == "" {
		prevLabel = "Previous"
	}
	if nextLabel == "" {
		nextLabel = "Next"
	}
	prev = Button(PreviousID, prevLabel, page <= 0)
	next = Button(NextID, nextLabel, page >= count-1)
	return prev, next
}

// ClampPage keeps page inside [0, count-1]. An empty list clamps to 0.
func ClampPage(page, count int) int {
	if page >= count {
		page = count - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// Pager builds a definition paging through count items. page renders item i
// and must not add navigation elements itself.
func Pager(name string, count int, page func(i int) Payload) Definition[int] {
	return Definition[int]{
		Name:    name,
		Initial: 0,
		Render: func(step int) Payload {
			var p Payload
			if count > 0 && page != nil {
				p = page(ClampPage(step, count))
			} else {
				p = Payload{Content: "Nothing to show."}
			}
			prev, next := NavButtons(step, count, "", "")
			p.Elements = append(p.Elements, prev, next)
			return p
		},
		Transitions: map[string]Transition[int]{
			PreviousID: func(_ context.Context, step int, _ Event) (int, error) {
				return ClampPage(step-1, count), nil
			},
			NextID: func(_ context.Context, step int, _ Event) (int, error) {
				return ClampPage(step+1, count), nil
			},
		},
	}
}
