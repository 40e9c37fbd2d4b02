package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_CloneIsDeep(t *testing.T) {
	u := &User{ID: "1", Avatar: []byte{1, 2, 3}, Tokens: []SessionToken{{Token: "a"}}}
	c := u.Clone()

	c.Avatar[0] = 9
	c.Tokens[0].Token = "b"
	c.Name = "changed"

	assert.Equal(t, byte(1), u.Avatar[0])
	assert.Equal(t, "a", u.Tokens[0].Token)
	assert.Empty(t, u.Name)
}

func TestUser_PendingPassword(t *testing.T) {
	u := &User{}
	_, ok := u.PendingPassword()
	assert.False(t, ok)

	u.SetPassword("hunter22")
	p, ok := u.PendingPassword()
	assert.True(t, ok)
	assert.Equal(t, "hunter22", p)

	_, ok = u.Clone().PendingPassword()
	assert.False(t, ok, "clones never carry plaintext")

	u.ClearPendingPassword()
	_, ok = u.PendingPassword()
	assert.False(t, ok)
}

func TestUser_HasToken(t *testing.T) {
	u := &User{Tokens: []SessionToken{{Token: "a"}, {Token: "b"}}}
	assert.True(t, u.HasToken("b"))
	assert.False(t, u.HasToken("c"))
}

func TestUserView_OmitsSecrets(t *testing.T) {
	u := &User{ID: "1", Name: "Ann", Email: "ann@example.com", PasswordHash: "$2a$hash", Avatar: []byte{1}, Tokens: []SessionToken{{Token: "tok"}}}
	b, err := json.Marshal(u.View())
	require.NoError(t, err)

	s := string(b)
	assert.NotContains(t, s, "$2a$hash")
	assert.NotContains(t, s, "tok")
	assert.NotContains(t, s, "avatar")
	assert.Contains(t, s, `"email":"ann@example.com"`)
}
