package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"studybot/internal/errs"
	"studybot/internal/session"
)

const (
	DefaultTimeout = 180 * time.Second

	deniedNotice  = "You are not allowed to interact with this message."
	closedNotice  = "This interaction is no longer active."
	failureNotice = "An error occurred while handling this interaction. The view has been closed."
	retryNotice   = "An error occurred while updating this message. Please try again."

	finalEditTimeout = 15 * time.Second
)

// Activation is an element activation addressed to an artifact.
type Activation struct {
	MessageID string
	ActorID   string
	ElementID string
	Values    []string
}

type EngineOptions struct {
	// Timeout is the inactivity period after which a view expires. It resets
	// on every successful dispatch.
	Timeout   time.Duration
	LogPrefix string
}

type live struct {
	view  *View
	timer *time.Timer
	gen   uint64
}

// Engine owns every live view, keyed by the message id of its artifact.
type Engine struct {
	delivery  Delivery
	timeout   time.Duration
	logPrefix string
	views     *session.Registry[*live]

	closeOnce sync.Once
	closed    chan struct{}
}

func NewEngine(delivery Delivery, opts EngineOptions) *Engine {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	prefix := strings.TrimSpace(opts.LogPrefix)
	if prefix == "" {
		prefix = "[view]"
	}
	return &Engine{
		delivery:  delivery,
		timeout:   timeout,
		logPrefix: prefix,
		views:     session.NewRegistry[*live](),
		closed:    make(chan struct{}),
	}
}

// Live returns the number of views waiting for input.
func (e *Engine) Live() int { return e.views.Len() }

// Open renders v for the first time and starts waiting for input on it.
func (e *Engine) Open(ctx context.Context, s *session.Session, v *View) (session.Handle, error) {
	if s == nil || v == nil {
		return session.Handle{}, fmt.Errorf("session and view are required")
	}
	select {
	case <-e.closed:
		return session.Handle{}, ErrClosed
	default:
	}

	s.Lock()
	defer s.Unlock()

	prev, _ := s.Artifact()
	h, err := e.deliver(ctx, s, v.Render())
	if err != nil {
		return session.Handle{}, err
	}
	// the chain's previous view, if any, no longer owns the artifact
	if !prev.IsZero() {
		if _, old, ok := e.views.Get(prev.MessageID); ok && old.view != v {
			old.view.terminate()
			if old.timer != nil {
				old.timer.Stop()
			}
			if prev.MessageID != h.MessageID {
				e.retire(ctx, prev, old.view.Render(), old.view.Name())
			}
			e.views.Delete(prev.MessageID)
		}
	}

	lv := &live{view: v}
	e.views.Put(h.MessageID, s, lv)
	e.arm(s, lv)
	return h, nil
}

// Dispatch routes an activation to the view that rendered a.MessageID.
func (e *Engine) Dispatch(ctx context.Context, a Activation) error {
	s, lv, ok := e.views.Get(a.MessageID)
	if !ok {
		e.notify(ctx, a.ActorID, closedNotice)
		return ErrClosed
	}

	if !s.Authorize(a.ActorID) {
		log.Printf("%s denied actor=%s invoker=%s view=%s msg_id=%s", e.logPrefix, a.ActorID, s.InvokerID(), lv.view.Name(), a.MessageID)
		e.notify(ctx, a.ActorID, deniedNotice)
		return &errs.AuthorizationError{ActorID: a.ActorID, InvokerID: s.InvokerID()}
	}

	s.Lock()
	defer s.Unlock()

	if lv.view.Terminal() {
		e.notify(ctx, a.ActorID, closedNotice)
		return ErrClosed
	}

	before, replace := lv.view.Step(), s.ReplaceMode()
	shown := lv.view.Render()

	err := lv.view.Apply(ctx, Event{ActorID: a.ActorID, ElementID: a.ElementID, Values: a.Values})
	done := errors.Is(err, ErrDone)
	if err != nil && !done {
		log.Printf("%s %s failed msg_id=%s element=%s: %v", e.logPrefix, lv.view.Name(), a.MessageID, a.ElementID, err)
		e.fail(ctx, s, lv)
		return err
	}

	if done {
		e.finish(ctx, s, lv, "done")
		return nil
	}

	prev, _ := s.Artifact()
	h, err := e.deliver(ctx, s, lv.view.Render())
	if err != nil {
		// the artifact still shows the old step
		lv.view.rollback(before)
		s.SetReplaceMode(replace)
		log.Printf("%s %s render failed msg_id=%s element=%s: %v", e.logPrefix, lv.view.Name(), a.MessageID, a.ElementID, err)
		e.notify(ctx, s.InvokerID(), retryNotice)
		return err
	}
	if h.MessageID != prev.MessageID {
		e.retire(ctx, prev, shown, lv.view.Name())
		e.views.Move(prev.MessageID, h.MessageID)
	}
	e.arm(s, lv)
	return nil
}

// Stop ends the view that rendered messageID.
func (e *Engine) Stop(ctx context.Context, messageID string) error {
	s, lv, ok := e.views.Get(messageID)
	if !ok {
		return ErrClosed
	}
	s.Lock()
	defer s.Unlock()
	if lv.view.Terminal() {
		return nil
	}
	e.finish(ctx, s, lv, "stopped")
	return nil
}

// Close stops every live view and refuses new ones.
func (e *Engine) Close(ctx context.Context) {
	e.closeOnce.Do(func() { close(e.closed) })
	for _, id := range e.views.Keys() {
		_ = e.Stop(ctx, id)
	}
}

func (e *Engine) arm(s *session.Session, lv *live) {
	if lv.timer != nil {
		lv.timer.Stop()
	}
	lv.gen++
	gen := lv.gen
	lv.timer = time.AfterFunc(e.timeout, func() { e.expire(s, lv, gen) })
}

func (e *Engine) expire(s *session.Session, lv *live, gen uint64) {
	s.Lock()
	defer s.Unlock()
	if lv.gen != gen || lv.view.Terminal() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalEditTimeout)
	defer cancel()
	e.finish(ctx, s, lv, "expired")
}

// finish makes the view terminal and performs its single final edit.
// The caller holds the session lock.
func (e *Engine) finish(ctx context.Context, s *session.Session, lv *live, reason string) {
	lv.view.terminate()
	if lv.timer != nil {
		lv.timer.Stop()
	}

	h, _ := s.Artifact()
	e.views.Delete(h.MessageID)

	if _, err := e.deliver(ctx, s, lv.view.Render()); err != nil {
		log.Printf("%s %s final edit failed msg_id=%s: %v", e.logPrefix, lv.view.Name(), h.MessageID, err)
	}
	log.Printf("%s %s %s msg_id=%s", e.logPrefix, lv.view.Name(), reason, h.MessageID)
}

// retire disables every element on an artifact the view no longer owns.
func (e *Engine) retire(ctx context.Context, h session.Handle, p Payload, name string) {
	p = p.clone()
	for i := range p.Elements {
		p.Elements[i].Disabled = true
	}
	if _, err := e.delivery.Edit(ctx, h, p); err != nil {
		log.Printf("%s %s retire edit failed msg_id=%s: %v", e.logPrefix, name, h.MessageID, err)
	}
}

func (e *Engine) fail(ctx context.Context, s *session.Session, lv *live) {
	e.finish(ctx, s, lv, "closed after error")

	h, _ := s.Artifact()
	if _, err := e.delivery.Send(ctx, s.ChannelID(), h.MessageID, Payload{
		Content:  failureNotice,
		Mentions: []string{s.InvokerID()},
	}); err != nil {
		log.Printf("%s failed to inform invoker=%s: %v", e.logPrefix, s.InvokerID(), err)
	}
}

// deliver shows p on the session's artifact. The caller holds the session
// lock.
func (e *Engine) deliver(ctx context.Context, s *session.Session, p Payload) (session.Handle, error) {
	return Deliver(ctx, e.delivery, s, p)
}

// Deliver edits the session's artifact, or sends a new one when the session
// has none or asks for replacement, and records the resulting handle.
func Deliver(ctx context.Context, d Delivery, s *session.Session, p Payload) (session.Handle, error) {
	prev, ok := s.Artifact()
	var (
		h   session.Handle
		err error
	)
	if !ok || s.ReplaceMode() {
		h, err = d.Send(ctx, s.ChannelID(), s.ReplyTo(), p)
		if err != nil {
			return session.Handle{}, errs.Delivery("send", err)
		}
		s.SetReplaceMode(false)
	} else {
		h, err = d.Edit(ctx, prev, p)
		if err != nil {
			return session.Handle{}, errs.Delivery("edit", err)
		}
	}
	s.SetArtifact(h)
	return h, nil
}

func (e *Engine) notify(ctx context.Context, userID, text string) {
	if strings.TrimSpace(userID) == "" {
		return
	}
	if err := e.delivery.NotifyPrivate(ctx, userID, text); err != nil {
		log.Printf("%s private notice to %s failed: %v", e.logPrefix, userID, err)
	}
}
