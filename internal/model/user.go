package model

import "time"

// User represents an account record as stored by any of the repository
// backends.  The struct carries both json-free storage fields and a
// pending plaintext password that only lives in memory between a call to
// SetPassword and the next successful save.
//
// Fields:
//
//	ID           – UUID assigned at creation.
//	Name         – display name, never empty.
//	Email        – lower-cased, unique address.
//	PasswordHash – bcrypt hash of the current password.
//	Age          – non-negative age in years.
//	Avatar       – canonical PNG bytes, nil when the user has no avatar.
//	Tokens       – active session tokens, oldest first.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last write.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Age          int
	Avatar       []byte
	Tokens       []SessionToken
	CreatedAt    time.Time
	UpdatedAt    time.Time

	pendingPassword string
}

// SessionToken is one bearer token issued to a user.  A user holds one
// entry per logged-in device.
type SessionToken struct {
	Token string `json:"token" bson:"token"`
}

// SetPassword records a new plaintext password.  The credential store
// hashes it on the next save; until then PasswordHash is unchanged.
func (u *User) SetPassword(plain string) {
	u.pendingPassword = plain
}

// PendingPassword returns the plaintext set by SetPassword and whether a
// password change is waiting to be persisted.
func (u *User) PendingPassword() (string, bool) {
	return u.pendingPassword, u.pendingPassword != ""
}

// ClearPendingPassword drops the in-memory plaintext after it was hashed.
func (u *User) ClearPendingPassword() {
	u.pendingPassword = ""
}

// HasToken reports whether token is one of the user's active sessions.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t.Token == token {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so that callers can stage changes without
// touching the original until a save succeeds.  A pending password is not
// carried over, so stores never retain plaintext.
func (u *User) Clone() *User {
	c := *u
	c.pendingPassword = ""
	if u.Avatar != nil {
		c.Avatar = append([]byte(nil), u.Avatar...)
	}
	if u.Tokens != nil {
		c.Tokens = append([]SessionToken(nil), u.Tokens...)
	}
	return &c
}

// UserView is the public JSON representation of a user.  Password hash,
// session tokens and avatar bytes are never part of it.
type UserView struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View builds the public representation of u.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
