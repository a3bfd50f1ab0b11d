package convo

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestAppendPairEvictsOldestFirst(t *testing.T) {
	var w Window
	for i := 1; i <= 5; i++ {
		w.AppendPair(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	if len(w.Turns) != MaxWindowEntries {
		t.Fatalf("expected %d turns, got %d", MaxWindowEntries, len(w.Turns))
	}
	if w.Pairs() != 3 {
		t.Fatalf("expected 3 pairs, got %d", w.Pairs())
	}

	// The two oldest pairs are gone; q3..q5 remain in order.
	if w.Turns[0].Text != "q3" || w.Turns[0].Role != RoleUser {
		t.Errorf("unexpected oldest turn: %+v", w.Turns[0])
	}
	if w.Turns[5].Text != "a5" || w.Turns[5].Role != RoleAssistant {
		t.Errorf("unexpected newest turn: %+v", w.Turns[5])
	}
}

func TestAppendPairKeepsRoleAlternation(t *testing.T) {
	var w Window
	w.AppendPair("hello", "hi there")
	w.AppendPair("bye", "see you")

	for i, turn := range w.Turns {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("turn %d: expected role %v, got %v", i, want, turn.Role)
		}
	}
}

func TestWindowNeverExceedsBound(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("window stays within bound for any pair count", prop.ForAll(
		func(pairs int) bool {
			var w Window
			for i := 0; i < pairs; i++ {
				w.AppendPair(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
			}
			if len(w.Turns) > MaxWindowEntries {
				return false
			}
			if len(w.Turns)%2 != 0 {
				return false
			}
			// The surviving turns must be the most recent ones.
			if pairs >= 3 {
				return w.Turns[len(w.Turns)-2].Text == fmt.Sprintf("q%d", pairs-1)
			}
			return true
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

func TestSenderRoleRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want SenderRole
	}{
		{"user", RoleUser},
		{"assistant", RoleAssistant},
		{"bot", RoleAssistant},
		{"system", RoleSystem},
		{"account", RoleUser},
		{"", RoleUser},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if RoleAssistant.String() != "assistant" {
		t.Errorf("unexpected role name %q", RoleAssistant.String())
	}
}
