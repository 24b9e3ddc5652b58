// SPDX-License-Identifier: AGPL-3.0-only
package session

import (
	"net/http"
	"sync"

	"github.com/fluffyriot/bookshare/internal/models"
)

type ActionType string

const (
	ActionSignedIn     ActionType = "SIGNED_IN"
	ActionFetchSuccess ActionType = "FETCH_SUCCESS"
	ActionUpdateUser   ActionType = "UPDATE_USER"
	ActionLogout       ActionType = "LOGOUT"
)

type Action struct {
	Type        ActionType
	User        *models.User
	Credentials models.Credentials
}

type State struct {
	User        *models.User
	Credentials models.Credentials
	IsLoading   bool
}

func InitialState() State {
	return State{IsLoading: true}
}

// Reduce returns the state that follows s after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionSignedIn:
		s.Credentials = a.Credentials
		s.User = nil
		s.IsLoading = true
	case ActionFetchSuccess:
		if a.User != nil {
			s.User = cloneUser(a.User)
		}
		s.IsLoading = false
	case ActionUpdateUser:
		s.User = cloneUser(a.User)
	case ActionLogout:
		s.User = nil
		s.Credentials = models.Credentials{}
	}
	return s
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Store is the only writer of session state. Everything else reads
// snapshots.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: InitialState()}
}

func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.snapshotLocked()
}

// snapshotLocked copies the state; callers must hold mu.
func (s *Store) snapshotLocked() State {
	st := s.state
	st.User = cloneUser(s.state.User)
	return st
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) UserID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return 0, false
	}
	return s.state.User.ID, true
}

func (s *Store) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.state.Credentials.Empty()
}

// ApplyHeaders sets the token headers on an outgoing request.
func (s *Store) ApplyHeaders(h http.Header) {
	s.mu.RLock()
	creds := s.state.Credentials
	s.mu.RUnlock()

	if creds.Empty() {
		return
	}
	h.Set("access-token", creds.AccessToken)
	h.Set("client", creds.Client)
	h.Set("uid", creds.UID)
}
