package session

import (
	"strings"
	"sync"
)

// Handle addresses a rendered message so it can be edited later.
type Handle struct {
	ChannelID string
	MessageID string
}

func (h Handle) IsZero() bool { return strings.TrimSpace(h.MessageID) == "" }

// Session is the context of one causal chain: the inbound command that started
// it and every element activation on the artifacts it rendered.
//
// A Session is created per inbound command and passed explicitly to whatever
// needs it. Follow-up events find it again through a Registry keyed by the
// artifact's message id.
type Session struct {
	invokerID string
	channelID string
	replyTo   string

	mu          sync.Mutex
	artifact    Handle
	hasArtifact bool
	replaceMode bool

	// serializes dispatch on this chain
	turn sync.Mutex
}

// Begin starts a session for invokerID in channelID. replyTo is the id of the
// message that triggered the chain, used as the reply reference of the first
// artifact.
func Begin(invokerID, channelID, replyTo string) *Session {
	return &Session{
		invokerID: strings.TrimSpace(invokerID),
		channelID: strings.TrimSpace(channelID),
		replyTo:   strings.TrimSpace(replyTo),
	}
}

func (s *Session) InvokerID() string { return s.invokerID }
func (s *Session) ChannelID() string { return s.channelID }
func (s *Session) ReplyTo() string   { return s.replyTo }

// Authorize reports whether actorID is the invoker of the chain.
func (s *Session) Authorize(actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && actorID == s.invokerID
}

func (s *Session) SetArtifact(h Handle) {
	s.mu.Lock()
	s.artifact = h
	s.hasArtifact = !h.IsZero()
	s.mu.Unlock()
}

// Artifact returns the last rendered artifact, if any.
func (s *Session) Artifact() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact, s.hasArtifact
}

func (s *Session) SetReplaceMode(v bool) {
	s.mu.Lock()
	s.replaceMode = v
	s.mu.Unlock()
}

func (s *Session) ReplaceMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceMode
}

// Lock acquires the chain's dispatch turn. Only one event of a chain is
// processed at a time, including its re-render.
func (s *Session) Lock()   { s.turn.Lock() }
func (s *Session) Unlock() { s.turn.Unlock() }
