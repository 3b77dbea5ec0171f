package session

import (
	"sync"
	"testing"
)

func TestAuthorize(t *testing.T) {
	s := Begin("alice", "c1", "m0")
	if !s.Authorize("alice") {
		t.Fatalf("invoker must be authorized")
	}
	if s.Authorize("bob") {
		t.Fatalf("other actors must be rejected")
	}
	if s.Authorize("") {
		t.Fatalf("empty actor must be rejected")
	}
}

func TestArtifactLifecycle(t *testing.T) {
	s := Begin("alice", "c1", "m0")
	if _, ok := s.Artifact(); ok {
		t.Fatalf("new session must not have an artifact")
	}
	s.SetArtifact(Handle{ChannelID: "c1", MessageID: "m1"})
	h, ok := s.Artifact()
	if !ok || h.MessageID != "m1" {
		t.Fatalf("artifact=%+v ok=%v", h, ok)
	}
	s.SetReplaceMode(true)
	if !s.ReplaceMode() {
		t.Fatalf("replace mode not set")
	}
}

func TestIndependentChainsDoNotShareState(t *testing.T) {
	reg := NewRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := Begin("user", "c", "")
			id := string(rune('a'+i%26)) + string(rune('A'+i/26))
			s.SetArtifact(Handle{ChannelID: "c", MessageID: id})
			reg.Put(id, s, i)
		}(i)
	}
	wg.Wait()

	if reg.Len() != 50 {
		t.Fatalf("len=%d", reg.Len())
	}
	for _, k := range reg.Keys() {
		s, _, ok := reg.Get(k)
		if !ok {
			t.Fatalf("missing %s", k)
		}
		h, _ := s.Artifact()
		if h.MessageID != k {
			t.Fatalf("session for %s observed artifact %s", k, h.MessageID)
		}
	}
}

func TestRegistryMove(t *testing.T) {
	reg := NewRegistry[string]()
	s := Begin("alice", "c1", "")
	reg.Put("m1", s, "view")
	reg.Move("m1", "m2")
	if _, _, ok := reg.Get("m1"); ok {
		t.Fatalf("old key still present")
	}
	got, v, ok := reg.Get("m2")
	if !ok || got != s || v != "view" {
		t.Fatalf("moved entry mismatch: %v %v %v", got, v, ok)
	}
}
