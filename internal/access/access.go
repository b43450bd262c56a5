// Package access is the AccessPolicy: the single decision point for whether
// a download may proceed, given a file's visibility/password settings and
// the requesting principal.
package access

import (
	"context"
	"crypto/subtle"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

// userLookup is the subset of internal/store.Store access checks need to
// resolve an admin override.
type userLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Policy is the AccessPolicy.
type Policy struct {
	users userLookup
}

// New constructs a Policy backed by users.
func New(users userLookup) *Policy {
	return &Policy{users: users}
}

// Check decides whether userID (empty for an anonymous caller) with the
// given password attempt may download file.
func (p *Policy) Check(ctx context.Context, file *models.File, userID, password string) error {
	if file.IsPublic && !file.HasPassword() {
		return nil
	}

	if file.HasPassword() {
		if password == "" || !constantTimeEqual(password, file.Password) {
			return cerrors.New(cerrors.CodeAuthorization, "password required or incorrect")
		}
		return nil
	}

	if userID == "" {
		return cerrors.New(cerrors.CodeAuthorization, "authentication required")
	}
	if userID == file.UserID {
		return nil
	}

	user, err := p.users.GetUserByID(ctx, userID)
	if err != nil {
		return cerrors.New(cerrors.CodeAuthorization, "access denied")
	}
	if user.Role == models.RoleAdmin {
		return nil
	}
	return cerrors.New(cerrors.CodeAuthorization, "access denied")
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
