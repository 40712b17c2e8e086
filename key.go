package segments

import (
	"strings"

	uuid "github.com/gofrs/uuid"
)

// HiddenKeyPrefix marks a Key as hidden. Hidden Keys can be resolved
// in a Store, but are not enumerated by default.
const HiddenKeyPrefix = "$"

// A Key addresses a value within a Store
type Key string

// String returns the string form of this Key
func (k Key) String() string {
	return string(k)
}

// IsHidden returns true iff this Key carries the hidden marker
func (k Key) IsHidden() bool {
	return strings.HasPrefix(string(k), HiddenKeyPrefix)
}

// MakeKey produces a fresh, globally unique Key from a random (v4) UUID
func MakeKey() (Key, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return Key(id.String()), nil
}

// MakeHiddenKey produces a fresh, globally unique hidden Key
func MakeHiddenKey() (Key, error) {
	k, err := MakeKey()
	if err != nil {
		return "", err
	}
	return Key(HiddenKeyPrefix + string(k)), nil
}
