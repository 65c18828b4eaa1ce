package service

import (
	"context"
	"errors"
	"testing"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoles struct {
	names  map[int]string
	perms  map[int][]string
	nextID int
	synced []string
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		names:  map[int]string{model.SuperAdminRoleID: "Direction"},
		perms:  map[int][]string{},
		nextID: 2,
	}
}

func (f *fakeRoles) GetRoleByID(_ context.Context, id int) (*model.RoleWithPermissions, error) {
	name, ok := f.names[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.RoleWithPermissions{
		Role:        &model.Role{ID: id, Name: name},
		Locked:      model.IsLockedRole(id),
		Permissions: f.perms[id],
	}, nil
}

func (f *fakeRoles) ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error) {
	var out []model.RoleWithPermissions
	for id := range f.names {
		r, _ := f.GetRoleByID(ctx, id)
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRoles) CreateRole(_ context.Context, name string) (int, error) {
	for _, n := range f.names {
		if n == name {
			return 0, repository.ErrDuplicateRole
		}
	}
	id := f.nextID
	f.nextID++
	f.names[id] = name
	return id, nil
}

func (f *fakeRoles) UpdateRole(_ context.Context, id int, name string) error {
	if _, ok := f.names[id]; !ok {
		return repository.ErrNotFound
	}
	f.names[id] = name
	return nil
}

func (f *fakeRoles) DeleteRole(_ context.Context, id int) error {
	delete(f.names, id)
	return nil
}

func (f *fakeRoles) DeleteAllPermissionsFromRole(_ context.Context, roleID int) error {
	delete(f.perms, roleID)
	return nil
}

func (f *fakeRoles) AssignPermissionsToRole(_ context.Context, roleID int, codes []string) error {
	f.perms[roleID] = append(f.perms[roleID], codes...)
	return nil
}

func (f *fakeRoles) SyncPermissions(_ context.Context, codes []string, roleID int) (int, error) {
	f.synced = codes
	added := len(codes) - len(f.perms[roleID])
	f.perms[roleID] = codes
	return added, nil
}

func TestAdminRole_CreateAndUpdate(t *testing.T) {
	roles := newFakeRoles()
	tx := &fakeTx{}
	svc := NewAdminRoleService(roles, tx)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, model.RoleRequest{
		Name:        "  Comptable ",
		Permissions: []string{string(model.PermissionFeesRead), string(model.PermissionFeesWrite)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Comptable", role.Name)
	assert.False(t, role.Locked)
	assert.Len(t, role.Permissions, 2)
	assert.Equal(t, 1, tx.calls)

	role, err = svc.UpdateRole(ctx, role.ID, model.RoleRequest{
		Name:        "Comptable principal",
		Permissions: []string{string(model.PermissionAccountsRead)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Comptable principal", role.Name)
	assert.Equal(t, []string{string(model.PermissionAccountsRead)}, role.Permissions)
}

func TestAdminRole_RejectsUnknownPermission(t *testing.T) {
	svc := NewAdminRoleService(newFakeRoles(), &fakeTx{})
	_, err := svc.CreateRole(context.Background(), model.RoleRequest{Name: "Surveillant", Permissions: []string{"exams:hack"}})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "permissions", verr.Field)
}

func TestAdminRole_SuperAdminIsLocked(t *testing.T) {
	svc := NewAdminRoleService(newFakeRoles(), &fakeTx{})
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, model.SuperAdminRoleID, model.RoleRequest{Name: "Renamed"})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, svc.DeleteRole(ctx, model.SuperAdminRoleID), ErrInvalidState)

	role, err := svc.GetRoleByID(ctx, model.SuperAdminRoleID)
	require.NoError(t, err)
	assert.True(t, role.Locked)
}

func TestAdminRole_SyncSuperAdmin(t *testing.T) {
	roles := newFakeRoles()
	svc := NewAdminRoleService(roles, &fakeTx{})

	added, err := svc.SyncSuperAdmin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(model.AllPermissions), added)
	assert.ElementsMatch(t, svc.GetAllPermissions(), roles.synced)
}
