package admission

import (
	"strings"
)

const keySeparator = ":"

var userIDEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator)

// ClientKey identifies a caller by its declared user id and the network origin
// the request came from.
type ClientKey struct {
	userID string
	origin string
}

func NewClientKey(userID, origin string) ClientKey {
	return ClientKey{userID: userID, origin: origin}
}

func (k ClientKey) UserID() string {
	return k.userID
}

func (k ClientKey) Origin() string {
	return k.origin
}

// String renders the key as "<escaped user id>:<origin>". Separators inside the
// user id are escaped, so the first bare ":" always splits the two parts.
func (k ClientKey) String() string {
	return userIDEscaper.Replace(k.userID) + keySeparator + k.origin
}

func (k ClientKey) IsZero() bool {
	return k.userID == "" && k.origin == ""
}

// ParseClientKey reverses String. It is used by backends that persist keys as
// plain strings.
func ParseClientKey(raw string) (ClientKey, error) {
	var (
		b       strings.Builder
		escaped bool
	)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case escaped:
			b.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == keySeparator[0]:
			return ClientKey{userID: b.String(), origin: raw[i+1:]}, nil
		default:
			b.WriteByte(ch)
		}
	}
	return ClientKey{}, ErrMalformedClientKey
}
