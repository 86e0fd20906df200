// Package guard decides whether a session may reach a protected route.
package guard

import (
	"slices"
	"sync"

	"litoralcitrus/models"
	"litoralcitrus/session"
)

// State is the outcome of guarding a route.
type State string

const (
	Loading         State = "loading"
	Unauthenticated State = "unauthenticated"
	PendingApproval State = "pending_approval"
	RoleDenied      State = "role_denied"
	Authorized      State = "authorized"
)

// Decide is a pure function of the session flags and the route's required roles.
// An empty required set admits every active account with a known role.
func Decide(s models.Session, required []models.UserRole) State {
	if !s.IsAuthenticated {
		return Unauthenticated
	}
	if !s.AccountActive || !s.Role.Valid() {
		return PendingApproval
	}
	if len(required) > 0 && !slices.Contains(required, s.Role) {
		return RoleDenied
	}
	return Authorized
}

// Machine tracks the guard state of one route for one client. It starts in
// Loading and moves to a terminal state each time the session changes.
type Machine struct {
	required []models.UserRole

	mu        sync.Mutex
	state     State
	observers []func(State)
}

func NewMachine(required ...models.UserRole) *Machine {
	return &Machine{required: required, state: Loading}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe registers fn to be called on every transition, Loading included.
func (m *Machine) Observe(fn func(State)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Evaluate restarts from Loading and resolves against s.
func (m *Machine) Evaluate(s models.Session) State {
	m.transition(Loading)
	next := Decide(s, m.required)
	m.transition(next)
	return next
}

// Attach re-evaluates on every change of st. If st is already resolved the
// machine leaves Loading immediately. The returned func detaches.
func (m *Machine) Attach(st *session.Store) func() {
	return st.OnStateChange(func(s models.Session) {
		m.Evaluate(s)
	})
}

func (m *Machine) transition(to State) {
	m.mu.Lock()
	m.state = to
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(to)
	}
}
