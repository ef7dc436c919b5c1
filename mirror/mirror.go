package mirror

import "context"

// Keys under which the credential mirror is stored, scoped by the
// implementation's prefix.
const (
	TokenKey = "idToken"
	RoleKey  = "userRole"
)

// State is the persisted pair. Both fields are empty or both are set.
type State struct {
	Token string
	Role  string
}

// Mirror is the durable two-key credential cache. Save and Clear must be
// all-or-nothing across both keys.
type Mirror interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Clear(ctx context.Context) error
}

// NoOp discards the mirror entirely; every Load reports an empty state.
// Useful for tests and for deployments without durable storage.
type NoOp struct{}

func (NoOp) Load(context.Context) (State, error) { return State{}, nil }
func (NoOp) Save(context.Context, State) error   { return nil }
func (NoOp) Clear(context.Context) error         { return nil }
