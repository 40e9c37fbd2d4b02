package service

import (
	"bytes"
	"encoding/json"
	"sort"
)

// allowedUpdates lists the body keys PATCH /users/me accepts.
var allowedUpdates = map[string]bool{"name": true, "age": true, "email": true, "password": true}

// ProfileUpdate holds the decoded fields of a profile update.  Nil means
// the field was not present in the request.
type ProfileUpdate struct {
	Name     *string
	Age      *int
	Email    *string
	Password *string
}

// ParseProfileUpdate checks every key of body against the allow-list
// before decoding anything, so one disallowed key rejects the whole update.
func ParseProfileUpdate(body map[string]json.RawMessage) (ProfileUpdate, error) {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowedUpdates[k] {
			return ProfileUpdate{}, invalid(k, "invalid updates")
		}
	}

	var upd ProfileUpdate
	for _, k := range keys {
		raw := body[k]
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return ProfileUpdate{}, invalid(k, "must not be null")
		}
		var err error
		switch k {
		case "name":
			upd.Name = new(string)
			err = json.Unmarshal(raw, upd.Name)
		case "email":
			upd.Email = new(string)
			err = json.Unmarshal(raw, upd.Email)
		case "password":
			upd.Password = new(string)
			err = json.Unmarshal(raw, upd.Password)
		case "age":
			upd.Age = new(int)
			err = json.Unmarshal(raw, upd.Age)
		}
		if err != nil {
			return ProfileUpdate{}, invalid(k, "has the wrong type")
		}
	}
	return upd, nil
}
