package view

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"studybot/internal/errs"
	"studybot/internal/session"
)

type sentMsg struct {
	channelID string
	replyTo   string
	payload   Payload
}

type editMsg struct {
	handle  session.Handle
	payload Payload
}

type notice struct {
	userID string
	text   string
}

type fakeDelivery struct {
	mu       sync.Mutex
	seq      int
	sends    []sentMsg
	edits    []editMsg
	notices  []notice
	failAll  error
	failEdit error
}

func (f *fakeDelivery) Send(_ context.Context, channelID, replyTo string, p Payload) (session.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return session.Handle{}, f.failAll
	}
	f.seq++
	f.sends = append(f.sends, sentMsg{channelID: channelID, replyTo: replyTo, payload: p})
	return session.Handle{ChannelID: channelID, MessageID: fmt.Sprintf("m%d", f.seq)}, nil
}

func (f *fakeDelivery) Edit(_ context.Context, h session.Handle, p Payload) (session.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return session.Handle{}, f.failAll
	}
	if f.failEdit != nil {
		return session.Handle{}, f.failEdit
	}
	f.edits = append(f.edits, editMsg{handle: h, payload: p})
	return h, nil
}

func (f *fakeDelivery) NotifyPrivate(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{userID: userID, text: text})
	return nil
}

func (f *fakeDelivery) setFailure(all, edit error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll, f.failEdit = all, edit
}

func (f *fakeDelivery) counts() (sends, edits, notices int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends), len(f.edits), len(f.notices)
}

func (f *fakeDelivery) lastEdit() editMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

func threeItems() Definition[int] {
	items := []string{"alpha", "beta", "gamma"}
	return Pager("items", len(items), func(i int) Payload {
		return Payload{Embed: &Embed{Title: items[i]}}
	})
}

func elementByID(t *testing.T, els []Element, id string) Element {
	t.Helper()
	for _, el := range els {
		if el.ID == id {
			return el
		}
	}
	t.Fatalf("element %q not found in %+v", id, els)
	return Element{}
}

func openThreeItems(t *testing.T, d *fakeDelivery, timeout time.Duration) (*Engine, *View, session.Handle) {
	t.Helper()
	eng := NewEngine(d, EngineOptions{Timeout: timeout})
	v := New(threeItems())
	h, err := eng.Open(context.Background(), session.Begin("alice", "c1", "cmd1"), v)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return eng, v, h
}

func TestPagerScenario(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, time.Minute)
	defer eng.Close(context.Background())

	if got := v.Step().(int); got != 0 {
		t.Fatalf("initial step=%d", got)
	}
	if !elementByID(t, v.Elements(), PreviousID).Disabled {
		t.Fatalf("previous must be disabled on the first page")
	}

	for i := 0; i < 2; i++ {
		if err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: NextID}); err != nil {
			t.Fatalf("Dispatch next: %v", err)
		}
	}
	if got := v.Step().(int); got != 2 {
		t.Fatalf("step=%d want 2", got)
	}
	if !elementByID(t, v.Elements(), NextID).Disabled {
		t.Fatalf("next must be disabled on the last page")
	}
	if elementByID(t, v.Elements(), PreviousID).Disabled {
		t.Fatalf("previous must be enabled on the last page")
	}

	sends, edits, _ := d.counts()
	if sends != 1 || edits != 2 {
		t.Fatalf("sends=%d edits=%d, want 1 send then edits in place", sends, edits)
	}
	if d.lastEdit().payload.Embed.Title != "gamma" {
		t.Fatalf("last render title=%q", d.lastEdit().payload.Embed.Title)
	}
}

func TestForeignActorIsDenied(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, time.Minute)
	defer eng.Close(context.Background())

	err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "bob", ElementID: NextID})
	if !errors.Is(err, errs.ErrAuthorization) {
		t.Fatalf("err=%v, want authorization error", err)
	}
	if got := v.Step().(int); got != 0 {
		t.Fatalf("step mutated to %d", got)
	}
	sends, edits, notices := d.counts()
	if sends != 1 || edits != 0 {
		t.Fatalf("denial must not render: sends=%d edits=%d", sends, edits)
	}
	if notices != 1 || d.notices[0].userID != "bob" {
		t.Fatalf("only bob should be notified: %+v", d.notices)
	}
}

func TestRenderIsPure(t *testing.T) {
	v := New(threeItems())
	a := v.Render()
	b := v.Render()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("renders differ:\n%+v\n%+v", a, b)
	}
	a.Elements[0].Label = "mutated"
	if reflect.DeepEqual(a, v.Render()) {
		t.Fatalf("render must not share element storage with callers")
	}
}

func TestUnknownElementClosesView(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, time.Minute)

	err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: "bogus"})
	if !errors.Is(err, errs.ErrInvalidElement) {
		t.Fatalf("err=%v, want invalid element", err)
	}
	if !v.Terminal() {
		t.Fatalf("view must be terminal")
	}
	for _, el := range d.lastEdit().payload.Elements {
		if !el.Disabled {
			t.Fatalf("element %s left enabled", el.ID)
		}
	}
	sends, _, _ := d.counts()
	if sends != 2 {
		t.Fatalf("invoker must be informed with one message, sends=%d", sends)
	}
	if got := d.sends[1].payload.Mentions; len(got) != 1 || got[0] != "alice" {
		t.Fatalf("failure notice mentions=%v", got)
	}
	if eng.Live() != 0 {
		t.Fatalf("view still registered")
	}
}

func TestExpireRunsOnceAndRejectsLaterDispatch(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, 30*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for !v.Terminal() || eng.Live() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("view did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	_, edits, _ := d.counts()
	if edits != 1 {
		t.Fatalf("edits=%d, want exactly one final edit", edits)
	}
	for _, el := range d.lastEdit().payload.Elements {
		if !el.Disabled {
			t.Fatalf("element %s left enabled after expiry", el.ID)
		}
	}

	err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: NextID})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v, want ErrClosed", err)
	}
}

func TestDispatchResetsInactivityTimer(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, 120*time.Millisecond)
	defer eng.Close(context.Background())

	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		if err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: PreviousID}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if v.Terminal() {
		t.Fatalf("view expired although it kept receiving input")
	}
}

func TestStopPerformsOneFinalEdit(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, time.Minute)

	if err := eng.Stop(context.Background(), h.MessageID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := eng.Stop(context.Background(), h.MessageID); !errors.Is(err, ErrClosed) {
		t.Fatalf("second stop err=%v", err)
	}
	if !v.Terminal() {
		t.Fatalf("view must be terminal")
	}
	if _, edits, _ := d.counts(); edits != 1 {
		t.Fatalf("edits=%d", edits)
	}
}

func TestReplaceModeSendsNewArtifact(t *testing.T) {
	d := &fakeDelivery{}
	eng := NewEngine(d, EngineOptions{Timeout: time.Minute})
	defer eng.Close(context.Background())

	s := session.Begin("alice", "c1", "cmd1")
	h1, err := eng.Open(context.Background(), s, New(threeItems()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SetReplaceMode(true)
	if err := eng.Dispatch(context.Background(), Activation{MessageID: h1.MessageID, ActorID: "alice", ElementID: NextID}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	h2, _ := s.Artifact()
	if h2.MessageID == h1.MessageID {
		t.Fatalf("replace mode must produce a new artifact")
	}
	if s.ReplaceMode() {
		t.Fatalf("replace mode applies to the next render only")
	}
	if _, _, ok := eng.views.Get(h2.MessageID); !ok {
		t.Fatalf("view not reachable through the new artifact")
	}
	if err := eng.Dispatch(context.Background(), Activation{MessageID: h1.MessageID, ActorID: "alice", ElementID: NextID}); !errors.Is(err, ErrClosed) {
		t.Fatalf("old artifact still dispatches: %v", err)
	}
}

func TestDoneTransitionEndsView(t *testing.T) {
	d := &fakeDelivery{}
	eng := NewEngine(d, EngineOptions{Timeout: time.Minute})
	v := New(Definition[string]{
		Name:    "confirm",
		Initial: "ask",
		Render: func(step string) Payload {
			return Payload{Content: step, Elements: []Element{Button("yes", "Yes", false)}}
		},
		Transitions: map[string]Transition[string]{
			"yes": func(context.Context, string, Event) (string, error) { return "confirmed", ErrDone },
		},
	})
	h, err := eng.Open(context.Background(), session.Begin("alice", "c1", ""), v)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: "yes"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !v.Terminal() {
		t.Fatalf("view must be terminal")
	}
	last := d.lastEdit().payload
	if last.Content != "confirmed" || !last.Elements[0].Disabled {
		t.Fatalf("final render=%+v", last)
	}
	if _, edits, _ := d.counts(); edits != 1 {
		t.Fatalf("edits=%d, want one final edit", edits)
	}
}

func TestDeliveryFailureSurfacesAsDeliveryError(t *testing.T) {
	d := &fakeDelivery{failAll: errors.New("connection reset")}
	eng := NewEngine(d, EngineOptions{Timeout: time.Minute})
	_, err := eng.Open(context.Background(), session.Begin("alice", "c1", ""), New(threeItems()))
	if !errors.Is(err, errs.ErrDelivery) {
		t.Fatalf("err=%v, want delivery error", err)
	}
	if eng.Live() != 0 {
		t.Fatalf("failed open must not register a view")
	}
}

func TestFailedRenderKeepsStepAndNotifiesInvoker(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, time.Minute)
	defer eng.Close(context.Background())

	d.setFailure(nil, errors.New("connection reset"))
	err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: NextID})
	if !errors.Is(err, errs.ErrDelivery) {
		t.Fatalf("err=%v, want delivery error", err)
	}
	if got := v.Step().(int); got != 0 {
		t.Fatalf("step=%d, want 0 while the message still shows page 0", got)
	}
	if !elementByID(t, v.Elements(), PreviousID).Disabled {
		t.Fatalf("element set must match the step on screen")
	}
	sends, edits, notices := d.counts()
	if sends != 1 || edits != 0 {
		t.Fatalf("sends=%d edits=%d", sends, edits)
	}
	if notices != 1 || d.notices[0].userID != "alice" || d.notices[0].text != retryNotice {
		t.Fatalf("invoker must get one generic notice: %+v", d.notices)
	}
	if v.Terminal() || eng.Live() != 1 {
		t.Fatalf("view should stay live after a failed render")
	}

	d.setFailure(nil, nil)
	if err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: NextID}); err != nil {
		t.Fatalf("Dispatch after recovery: %v", err)
	}
	if got := v.Step().(int); got != 1 {
		t.Fatalf("step=%d want 1", got)
	}
	if title := d.lastEdit().payload.Embed.Title; title != "beta" {
		t.Fatalf("title=%q want beta", title)
	}
}

func TestFailedReplaceKeepsReplaceMode(t *testing.T) {
	d := &fakeDelivery{}
	eng := NewEngine(d, EngineOptions{Timeout: time.Minute})
	defer eng.Close(context.Background())

	s := session.Begin("alice", "c1", "cmd1")
	v := New(threeItems())
	h, err := eng.Open(context.Background(), s, v)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SetReplaceMode(true)
	d.setFailure(errors.New("status 502"), nil)
	if err := eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: NextID}); !errors.Is(err, errs.ErrDelivery) {
		t.Fatalf("err=%v, want delivery error", err)
	}
	if got := v.Step().(int); got != 0 {
		t.Fatalf("step=%d want 0", got)
	}
	if !s.ReplaceMode() {
		t.Fatalf("replace mode must survive a failed send")
	}
	if cur, _ := s.Artifact(); cur != h {
		t.Fatalf("artifact=%+v want %+v", cur, h)
	}
}

func TestReplaceModeDisablesOldArtifact(t *testing.T) {
	d := &fakeDelivery{}
	eng := NewEngine(d, EngineOptions{Timeout: time.Minute})
	defer eng.Close(context.Background())

	s := session.Begin("alice", "c1", "cmd1")
	h1, err := eng.Open(context.Background(), s, New(threeItems()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SetReplaceMode(true)
	if err := eng.Dispatch(context.Background(), Activation{MessageID: h1.MessageID, ActorID: "alice", ElementID: NextID}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	sends, edits, _ := d.counts()
	if sends != 2 || edits != 1 {
		t.Fatalf("sends=%d edits=%d, want a new artifact and one edit of the old", sends, edits)
	}
	old := d.lastEdit()
	if old.handle != h1 || old.payload.Embed.Title != "alpha" {
		t.Fatalf("old artifact edit=%+v", old)
	}
	for _, el := range old.payload.Elements {
		if !el.Disabled {
			t.Fatalf("element %s left enabled on the old artifact", el.ID)
		}
	}
	if d.sends[1].payload.Embed.Title != "beta" {
		t.Fatalf("new artifact title=%q", d.sends[1].payload.Embed.Title)
	}
}

func TestOpenSupersedesChainView(t *testing.T) {
	d := &fakeDelivery{}
	eng := NewEngine(d, EngineOptions{Timeout: time.Minute})
	defer eng.Close(context.Background())

	s := session.Begin("alice", "c1", "cmd1")
	first := New(threeItems())
	h1, err := eng.Open(context.Background(), s, first)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// in place: the new render overwrites the old one, no extra edit
	second := New(threeItems())
	if _, err := eng.Open(context.Background(), s, second); err != nil {
		t.Fatalf("Open in place: %v", err)
	}
	if !first.Terminal() || eng.Live() != 1 {
		t.Fatalf("first view must be superseded, live=%d", eng.Live())
	}
	if _, edits, _ := d.counts(); edits != 1 {
		t.Fatalf("edits=%d, want only the new render", edits)
	}
	if elementByID(t, d.lastEdit().payload.Elements, NextID).Disabled {
		t.Fatalf("in-place render must keep the new view usable")
	}

	// on a new message: the old one gets its elements disabled
	s.SetReplaceMode(true)
	h3, err := eng.Open(context.Background(), s, New(threeItems()))
	if err != nil {
		t.Fatalf("Open replace: %v", err)
	}
	if h3 == h1 || !second.Terminal() || eng.Live() != 1 {
		t.Fatalf("second view must be superseded by a new artifact")
	}
	old := d.lastEdit()
	if old.handle != h1 {
		t.Fatalf("edited %+v want %+v", old.handle, h1)
	}
	for _, el := range old.payload.Elements {
		if !el.Disabled {
			t.Fatalf("element %s left enabled on the superseded artifact", el.ID)
		}
	}
}

func TestDispatchIsSerializedPerSession(t *testing.T) {
	d := &fakeDelivery{}
	eng, v, h := openThreeItems(t, d, time.Minute)
	defer eng.Close(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.Dispatch(context.Background(), Activation{MessageID: h.MessageID, ActorID: "alice", ElementID: NextID})
		}()
	}
	wg.Wait()
	if got := v.Step().(int); got != 2 {
		t.Fatalf("step=%d want 2", got)
	}
	if _, edits, _ := d.counts(); edits != 20 {
		t.Fatalf("edits=%d want 20", edits)
	}
}
