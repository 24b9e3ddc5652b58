// SPDX-License-Identifier: AGPL-3.0-only
package session

import (
	"net/http"
	"testing"

	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceSignInThenFetch(t *testing.T) {
	creds := models.Credentials{AccessToken: "tok", Client: "cli", UID: "a@b.c"}

	s := Reduce(InitialState(), Action{Type: ActionSignedIn, Credentials: creds})
	assert.True(t, s.IsLoading)
	assert.Nil(t, s.User)
	assert.Equal(t, creds, s.Credentials)

	s = Reduce(s, Action{Type: ActionFetchSuccess, User: &models.User{ID: 7, Username: "mika"}})
	assert.False(t, s.IsLoading)
	require.NotNil(t, s.User)
	assert.Equal(t, int64(7), s.User.ID)
}

func TestReduceDoesNotAliasUser(t *testing.T) {
	u := &models.User{ID: 1, Username: "before"}
	s := Reduce(InitialState(), Action{Type: ActionUpdateUser, User: u})
	u.Username = "after"
	assert.Equal(t, "before", s.User.Username)
}

func TestReduceLogoutClearsCredentials(t *testing.T) {
	s := State{
		User:        &models.User{ID: 3},
		Credentials: models.Credentials{AccessToken: "x", Client: "y", UID: "z"},
	}
	s = Reduce(s, Action{Type: ActionLogout})
	assert.Nil(t, s.User)
	assert.True(t, s.Credentials.Empty())
}

func TestReduceUnknownActionIsIdentity(t *testing.T) {
	s := State{User: &models.User{ID: 3}, IsLoading: false}
	next := Reduce(s, Action{Type: "SOMETHING_ELSE"})
	assert.Equal(t, s, next)
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	st := NewStore()
	st.Dispatch(Action{Type: ActionFetchSuccess, User: &models.User{ID: 9, Username: "a"}})

	snap := st.Snapshot()
	snap.User.Username = "mutated"

	assert.Equal(t, "a", st.Snapshot().User.Username)
	id, ok := st.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
}

func TestStoreApplyHeaders(t *testing.T) {
	st := NewStore()
	h := http.Header{}
	st.ApplyHeaders(h)
	assert.Empty(t, h)
	assert.False(t, st.SignedIn())

	st.Dispatch(Action{Type: ActionSignedIn, Credentials: models.Credentials{AccessToken: "tok", Client: "cli", UID: "me"}})
	st.ApplyHeaders(h)
	assert.Equal(t, "tok", h.Get("access-token"))
	assert.Equal(t, "cli", h.Get("client"))
	assert.Equal(t, "me", h.Get("uid"))
	assert.True(t, st.SignedIn())
}
