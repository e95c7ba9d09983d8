package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned when a conversation key is not "{type}_{id}".
var ErrInvalidKey = errors.New("invalid conversation key")

// UserRef identifies a user across the backend's user-type tables.
// Numeric ids are only unique within one type.
type UserRef struct {
	Type string
	ID   int64
}

// Key returns the conversation unique key "{type}_{id}".
func (u UserRef) Key() string {
	return u.Type + "_" + strconv.FormatInt(u.ID, 10)
}

// IsZero reports whether the ref is unset.
func (u UserRef) IsZero() bool {
	return u.Type == "" && u.ID == 0
}

func (u UserRef) String() string {
	return u.Key()
}

// ParseKey parses a "{type}_{id}" key. The type part may itself contain
// underscores; the id is everything after the last one.
func ParseKey(key string) (UserRef, error) {
	i := strings.LastIndexByte(key, '_')
	if i <= 0 || i == len(key)-1 {
		return UserRef{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	id, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil || id < 0 {
		return UserRef{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return UserRef{Type: key[:i], ID: id}, nil
}

// CurrentUserProvider supplies the signed-in user. Auth and session storage
// live outside the engine; the engine only asks who "me" is.
type CurrentUserProvider interface {
	CurrentUser() UserRef
}

// StaticUser is a CurrentUserProvider for a fixed user.
type StaticUser UserRef

// CurrentUser implements CurrentUserProvider.
func (s StaticUser) CurrentUser() UserRef {
	return UserRef(s)
}
