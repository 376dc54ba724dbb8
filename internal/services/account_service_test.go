package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/models"
	"library/internal/repositories"
)

func TestRegisterCreatesExactlyOneProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register("alice", "s3cretpass")
	require.NoError(t, err)
	require.NotNil(t, user.Profile)
	assert.Equal(t, models.RoleMember, user.Profile.Role)
	assert.Equal(t, user.ID, user.Profile.UserID)

	var count int64
	require.NoError(t, db.Model(&models.UserProfile{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Password is stored hashed, never verbatim.
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	_, err := svc.Register("alice", "s3cretpass")
	require.NoError(t, err)

	_, err = svc.Register("alice", "otherpass1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register("bob", "s3cretpass")
	require.NoError(t, err)

	// A duplicate creation event must not yield a second profile.
	first, err := svc.EnsureProfile(user.ID)
	require.NoError(t, err)
	second, err := svc.EnsureProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.UserProfile{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	_, err := svc.Register("carol", "s3cretpass")
	require.NoError(t, err)

	user, err := svc.Authenticate("carol", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	require.NotNil(t, user.Profile)

	_, err = svc.Authenticate("carol", "wrongpass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("nobody", "s3cretpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRoleOf(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	role, err := svc.RoleOf(nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUnauthenticated, role)

	user, err := svc.Register("dave", "s3cretpass")
	require.NoError(t, err)

	role, err = svc.RoleOf(user)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
}

func TestRoleOfMissingProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	// A user persisted outside the registration path, without a profile.
	user := &models.User{Username: "ghost", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	_, err := svc.RoleOf(user)
	assert.ErrorIs(t, err, ErrProfileMissing)
}

func TestRoleOfRejectsUnknownRoleString(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register("erin", "s3cretpass")
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.UserProfile{}).
		Where("user_id = ?", user.ID).
		Update("role", "Superuser").Error)

	reloaded, err := svc.GetUser(user.ID)
	require.NoError(t, err)

	_, err = svc.RoleOf(reloaded)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAssignRole(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register("frank", "s3cretpass")
	require.NoError(t, err)

	profile, err := svc.AssignRole(user.ID, models.RoleLibrarian)
	require.NoError(t, err)
	assert.Equal(t, models.RoleLibrarian, profile.Role)

	reloaded, err := svc.GetUser(user.ID)
	require.NoError(t, err)
	role, err := svc.RoleOf(reloaded)
	require.NoError(t, err)
	assert.Equal(t, models.RoleLibrarian, role)

	_, err = svc.AssignRole(user.ID, models.Role("Villain"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.AssignRole(user.ID, models.RoleUnauthenticated)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestGrantPermissions(t *testing.T) {
	db := newTestDB(t)
	svc := newAccountService(db)

	user, err := svc.Register("grace", "s3cretpass")
	require.NoError(t, err)
	assert.False(t, user.HasPermission(models.PermAddBook))

	granted, err := svc.GrantPermissions(user.ID, []string{models.PermAddBook, models.PermDeleteBook})
	require.NoError(t, err)
	assert.True(t, granted.HasPermission(models.PermAddBook))
	assert.True(t, granted.HasPermission(models.PermDeleteBook))
	assert.False(t, granted.HasPermission(models.PermChangeBook))

	// Granting again is a no-op, not a duplicate row.
	granted, err = svc.GrantPermissions(user.ID, []string{models.PermAddBook})
	require.NoError(t, err)
	assert.Len(t, granted.Permissions, 2)

	_, err = svc.GrantPermissions(user.ID, []string{"can_fly"})
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestSaveUserTouchesProfileWhenPresent(t *testing.T) {
	db := newTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	svc := newAccountService(db)

	user, err := svc.Register("heidi", "s3cretpass")
	require.NoError(t, err)

	// AssignRole drives the save-user path; the profile must survive as the
	// single profile for the user.
	_, err = svc.AssignRole(user.ID, models.RoleAdmin)
	require.NoError(t, err)

	profile, err := profileRepo.GetByUser(nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, profile.Role)

	stored, err := userRepo.GetByUsername(nil, "heidi")
	require.NoError(t, err)
	require.NotNil(t, stored.Profile)
	assert.Equal(t, profile.ID, stored.Profile.ID)
}
