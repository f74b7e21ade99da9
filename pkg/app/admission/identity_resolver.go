package admission

import (
	"strings"

	domain "github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
)

type IdentityResolver interface {
	Resolve(userID, origin string) (domain.ClientKey, error)
}

type identityResolver struct{}

func NewIdentityResolver() IdentityResolver {
	return &identityResolver{}
}

// Resolve builds the key a request is rate limited under. The origin comes
// from the transport and is taken as is; only the declared user id can make
// resolution fail.
func (r *identityResolver) Resolve(userID, origin string) (domain.ClientKey, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ClientKey{}, domain.ErrInvalidIdentity
	}
	return domain.NewClientKey(userID, strings.TrimSpace(origin)), nil
}
