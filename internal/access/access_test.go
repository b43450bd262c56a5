package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, cerrors.New(cerrors.CodeNotFound, "user not found")
}

func TestCheckAllowsPublicFileWithNoPassword(t *testing.T) {
	p := New(&fakeUsers{})
	file := &models.File{UserID: "owner", IsPublic: true}
	assert.NoError(t, p.Check(context.Background(), file, "", ""))
}

func TestCheckRequiresCorrectPassword(t *testing.T) {
	p := New(&fakeUsers{})
	file := &models.File{UserID: "owner", IsPublic: true, Password: "secret"}

	assert.Error(t, p.Check(context.Background(), file, "", ""))
	assert.Error(t, p.Check(context.Background(), file, "", "wrong"))
	assert.NoError(t, p.Check(context.Background(), file, "", "secret"))
}

func TestCheckAllowsOwnerForPrivateFile(t *testing.T) {
	p := New(&fakeUsers{})
	file := &models.File{UserID: "owner", IsPublic: false}
	assert.NoError(t, p.Check(context.Background(), file, "owner", ""))
}

func TestCheckDeniesNonOwnerForPrivateFile(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{"other": {ID: "other", Role: models.RoleFree}}}
	p := New(users)
	file := &models.File{UserID: "owner", IsPublic: false}

	err := p.Check(context.Background(), file, "other", "")
	assert.Equal(t, cerrors.CodeAuthorization, cerrors.CodeOf(err))
}

func TestCheckAllowsAdminForPrivateFile(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{"admin-1": {ID: "admin-1", Role: models.RoleAdmin}}}
	p := New(users)
	file := &models.File{UserID: "owner", IsPublic: false}

	assert.NoError(t, p.Check(context.Background(), file, "admin-1", ""))
}

func TestCheckDeniesAnonymousForPrivateFile(t *testing.T) {
	p := New(&fakeUsers{})
	file := &models.File{UserID: "owner", IsPublic: false}

	err := p.Check(context.Background(), file, "", "")
	assert.Equal(t, cerrors.CodeAuthorization, cerrors.CodeOf(err))
}
