package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry and CommandRouter.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the flow cards available to automations.
//
// Registering a card with a name that already exists for the same kind
// replaces it. All public methods are thread-safe.
type Registry struct {
	mu         sync.RWMutex
	cards      map[CardKind]map[string]Card
	conditions map[string]ConditionFunc
	actions    map[string]ActionFunc
	logger     Logger
}

// NewRegistry creates an empty card registry.
func NewRegistry() *Registry {
	return &Registry{
		cards: map[CardKind]map[string]Card{
			KindTrigger:   {},
			KindCondition: {},
			KindAction:    {},
		},
		conditions: make(map[string]ConditionFunc),
		actions:    make(map[string]ActionFunc),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// RegisterTrigger declares a trigger card and the tokens its payload carries.
func (r *Registry) RegisterTrigger(name, description string, tokens ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[KindTrigger][name] = Card{
		Name:        name,
		Kind:        KindTrigger,
		Description: description,
		Tokens:      append([]string(nil), tokens...),
	}
}

// RegisterCondition declares a condition card.
func (r *Registry) RegisterCondition(name, description string, fn ConditionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[KindCondition][name] = Card{Name: name, Kind: KindCondition, Description: description}
	r.conditions[name] = fn
}

// RegisterAction declares an action card.
func (r *Registry) RegisterAction(name, description string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[KindAction][name] = Card{Name: name, Kind: KindAction, Description: description}
	r.actions[name] = fn
}

// Evaluate runs the named condition.
func (r *Registry) Evaluate(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	fn, ok := r.conditions[name]
	logger := r.logger
	r.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCondition, name)
	}

	result, err := fn(ctx)
	if err != nil {
		return false, fmt.Errorf("evaluating %s: %w", name, err)
	}
	logger.Debug("condition evaluated", "condition", name, "result", result)
	return result, nil
}

// Run executes the named action.
func (r *Registry) Run(ctx context.Context, name string, params map[string]any) error {
	r.mu.RLock()
	fn, ok := r.actions[name]
	logger := r.logger
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	logger.Info("running action", "action", name)
	if err := fn(ctx, params); err != nil {
		logger.Warn("action failed", "action", name, "error", err)
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}

// Cards returns every registered card ordered by kind then name.
func (r *Registry) Cards() []Card {
	var all []Card
	all = append(all, r.Triggers()...)
	all = append(all, r.Conditions()...)
	all = append(all, r.Actions()...)
	return all
}

// Triggers returns the trigger cards sorted by name.
func (r *Registry) Triggers() []Card { return r.list(KindTrigger) }

// Conditions returns the condition cards sorted by name.
func (r *Registry) Conditions() []Card { return r.list(KindCondition) }

// Actions returns the action cards sorted by name.
func (r *Registry) Actions() []Card { return r.list(KindAction) }

func (r *Registry) list(kind CardKind) []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cards := make([]Card, 0, len(r.cards[kind]))
	for _, c := range r.cards[kind] {
		c.Tokens = append([]string(nil), c.Tokens...)
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Name < cards[j].Name
	})
	return cards
}
