package rules

import (
	"context"
	"errors"
	"testing"
)

// fakeStore is an in-memory rules.Store for router and cache tests.
type fakeStore struct {
	rules    []Rule
	loadErr  error
	loads    int
	triggers map[string]int64
}

func (s *fakeStore) ActiveRules(_ context.Context) ([]Rule, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *fakeStore) IncrementTrigger(_ context.Context, ruleID string) (int64, error) {
	if s.triggers == nil {
		s.triggers = make(map[string]int64)
	}
	s.triggers[ruleID]++
	return s.triggers[ruleID], nil
}

func (s *fakeStore) UpdateStats(_ context.Context, _ string, _ int64, _ float64) error {
	return nil
}

// fakeRegistry is an in-memory rules.UserRegistry.
type fakeRegistry struct {
	states  map[string]RoutingState
	readErr error
}

func (r *fakeRegistry) RoutingState(_ context.Context, channelUserID string) (RoutingState, error) {
	if r.readErr != nil {
		return RoutingIdle, r.readErr
	}
	if state, ok := r.states[channelUserID]; ok {
		return state, nil
	}
	return RoutingIdle, nil
}

func (r *fakeRegistry) SetRoutingState(_ context.Context, channelUserID string, state RoutingState) error {
	if r.states == nil {
		r.states = make(map[string]RoutingState)
	}
	r.states[channelUserID] = state
	return nil
}

func testRules() []Rule {
	return []Rule{
		{ID: "r-order", Name: "Orders", Keywords: []string{"order", "tracking"}, Mode: ModeAutomate, Priority: 1, Active: true},
		{ID: "r-human", Name: "Human", Keywords: []string{"human", "agent"}, Mode: ModeHandoff, Priority: 2, Active: true},
		{ID: "r-catchall", Name: "Catchall", Keywords: []string{"help"}, Mode: ModeAutomate, Priority: 9, Active: true},
	}
}

func newTestRouter(store *fakeStore, users *fakeRegistry) *Router {
	cache := NewCache(store, 0, nil)
	return NewRouter(cache, store, users, nil)
}

func TestMatchPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantRule string
	}{
		{"exact keyword", "order", "r-order"},
		{"substring containment", "where is my ORDER please", "r-order"},
		{"case and whitespace insensitive", "  TRACKING  ", "r-order"},
		{"lower priority wins on overlap", "I need a human to check my order", "r-order"},
		{"handoff keyword", "talk to an agent", "r-human"},
		{"no match", "what's the weather", ""},
		{"empty text", "   ", ""},
	}

	router := newTestRouter(&fakeStore{rules: testRules()}, &fakeRegistry{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := router.Match(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantRule == "" {
				if rule != nil {
					t.Fatalf("expected no match, got %s", rule.ID)
				}
				return
			}
			if rule == nil || rule.ID != tt.wantRule {
				t.Fatalf("expected %s, got %+v", tt.wantRule, rule)
			}
		})
	}
}

func TestMatchPriorityTieKeepsStorageOrder(t *testing.T) {
	store := &fakeStore{rules: []Rule{
		{ID: "first", Keywords: []string{"refund"}, Mode: ModeAutomate, Priority: 5, Active: true},
		{ID: "second", Keywords: []string{"refund"}, Mode: ModeHandoff, Priority: 5, Active: true},
	}}
	router := newTestRouter(store, &fakeRegistry{})

	rule, err := router.Match(context.Background(), "refund please")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule == nil || rule.ID != "first" {
		t.Fatalf("tie must keep storage order, got %+v", rule)
	}
}

func TestTriggerSetsRoutingStateAndCount(t *testing.T) {
	store := &fakeStore{rules: testRules()}
	users := &fakeRegistry{}
	router := newTestRouter(store, users)

	rule := &store.rules[0]
	if count := router.Trigger(context.Background(), rule, "user-1"); count != 1 {
		t.Errorf("expected post-increment count 1, got %d", count)
	}
	if got := users.states["user-1"]; got != RoutingAutomate {
		t.Errorf("expected automate routing state, got %q", got)
	}

	handoff := &store.rules[1]
	router.Trigger(context.Background(), handoff, "user-1")
	if got := users.states["user-1"]; got != RoutingHandoff {
		t.Errorf("expected handoff routing state, got %q", got)
	}
}

func TestTriggerCountFallbackOnStoreFailure(t *testing.T) {
	store := &failingTriggerStore{fakeStore{rules: testRules()}}
	cache := NewCache(store, 0, nil)
	router := NewRouter(cache, store, &fakeRegistry{}, nil)

	rule := &Rule{ID: "r-x", TriggerCount: 7}
	if count := router.Trigger(context.Background(), rule, "user-1"); count != 8 {
		t.Errorf("expected cached count + 1 on failure, got %d", count)
	}
}

type failingTriggerStore struct {
	fakeStore
}

func (s *failingTriggerStore) IncrementTrigger(_ context.Context, _ string) (int64, error) {
	return 0, errors.New("db locked")
}

func TestAutomateEnabled(t *testing.T) {
	users := &fakeRegistry{states: map[string]RoutingState{
		"auto-user":    RoutingAutomate,
		"handoff-user": RoutingHandoff,
	}}
	router := newTestRouter(&fakeStore{rules: testRules()}, users)

	if !router.AutomateEnabled(context.Background(), "auto-user") {
		t.Error("automate state must report enabled")
	}
	if router.AutomateEnabled(context.Background(), "handoff-user") {
		t.Error("handoff state must report disabled")
	}
	if router.AutomateEnabled(context.Background(), "unknown-user") {
		t.Error("unknown user must report disabled")
	}

	users.readErr = errors.New("db down")
	if router.AutomateEnabled(context.Background(), "auto-user") {
		t.Error("registry failure must report disabled")
	}
}
