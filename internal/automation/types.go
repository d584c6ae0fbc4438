package automation

import "context"

// CardKind identifies the role of a flow card.
type CardKind string

// Card kinds.
const (
	KindTrigger   CardKind = "trigger"
	KindCondition CardKind = "condition"
	KindAction    CardKind = "action"
)

// Card describes one flow card.
type Card struct {
	Name        string   `json:"name"`
	Kind        CardKind `json:"kind"`
	Description string   `json:"description"`

	// Tokens are the payload fields a trigger provides.
	Tokens []string `json:"tokens,omitempty"`
}

// ConditionFunc evaluates a condition card.
type ConditionFunc func(ctx context.Context) (bool, error)

// ActionFunc runs an action card.
type ActionFunc func(ctx context.Context, params map[string]any) error
