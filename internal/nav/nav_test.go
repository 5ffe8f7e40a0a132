package nav

import (
	"net/url"
	"testing"
)

func TestMemoryReplaceDoesNotTouchInitial(t *testing.T) {
	m := NewMemory(url.Values{"instance": {"abc"}})

	m.Replace(url.Values{"instance": {"def"}})

	if got := m.Initial().Get("instance"); got != "abc" {
		t.Fatalf("Initial() = %q, want abc", got)
	}
	if got := m.Current().Get("instance"); got != "def" {
		t.Fatalf("Current() = %q, want def", got)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory(url.Values{"instance": {"abc"}})

	m.Current().Set("instance", "mutated")

	if got := m.Current().Get("instance"); got != "abc" {
		t.Fatalf("Current() = %q, callers must not mutate shared state", got)
	}
}
