package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/models"
)

func TestStore_OnStateChange(t *testing.T) {
	st := NewStore()

	var seen []models.Session
	unsubscribe := st.OnStateChange(func(s models.Session) { seen = append(seen, s) })
	assert.Empty(t, seen, "unresolved store does not fire on attach")

	active := models.Session{IsAuthenticated: true, AccountActive: true, Role: models.RoleAdmin}
	st.Set(active)
	require.Len(t, seen, 1)
	assert.Equal(t, active, seen[0])

	st.Set(models.Session{})
	require.Len(t, seen, 2)
	assert.False(t, seen[1].IsAuthenticated)

	unsubscribe()
	unsubscribe()
	st.Set(active)
	assert.Len(t, seen, 2)
}

func TestStore_FiresImmediatelyWhenResolved(t *testing.T) {
	sess := models.Session{IsAuthenticated: true, Role: models.RoleQueryUser}
	st := NewStore()
	st.Set(sess)

	var got models.Session
	calls := 0
	st.OnStateChange(func(s models.Session) {
		got = s
		calls++
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, sess, got)

	cur, resolved := st.Get()
	assert.True(t, resolved)
	assert.Equal(t, sess, cur)
}

func TestStore_ListenerMaySubscribeReentrantly(t *testing.T) {
	st := NewStore()
	nested := 0
	st.OnStateChange(func(models.Session) {
		st.OnStateChange(func(models.Session) { nested++ })
	})

	assert.NotPanics(t, func() { st.Set(models.Session{IsAuthenticated: true}) })
	assert.Equal(t, 1, nested)
}

func TestTheme(t *testing.T) {
	assert.Equal(t, DefaultTheme, Theme(""))
	assert.Equal(t, DefaultTheme, Theme("neon"))
	assert.Equal(t, "ocean", Theme("ocean"))
	assert.True(t, ValidTheme("dark"))
	assert.False(t, ValidTheme("Dark"))
}
