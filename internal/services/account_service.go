package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"library/internal/models"
	"library/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when registering with an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on a failed login attempt. The cause
	// (unknown user vs. wrong password) is deliberately not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileMissing is returned when an authenticated user has no
	// profile. This state violates the registration invariant and normally
	// cannot occur; callers treat it as a denied request, not a crash.
	ErrProfileMissing = errors.New("user has no profile")

	// ErrInvalidRole is returned when a persisted role string is not one of
	// the known roles, or a role assignment names an unknown role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrUnknownPermission is returned when granting a codename that was
	// never seeded.
	ErrUnknownPermission = errors.New("unknown permission codename")
)

// ─── Service Interface ────────────────────────────────────────────────────────

// AccountService owns user registration, credential checks, the profile
// lifecycle and the role/permission queries the authorization gates rely on.
type AccountService interface {
	Register(username, password string) (*models.User, error)
	Authenticate(username, password string) (*models.User, error)
	GetUser(id uuid.UUID) (*models.User, error)

	RoleOf(user *models.User) (models.Role, error)
	EnsureProfile(userID uuid.UUID) (*models.UserProfile, error)

	AssignRole(userID uuid.UUID, role models.Role) (*models.UserProfile, error)
	GrantPermissions(userID uuid.UUID, codenames []string) (*models.User, error)
}

type accountService struct {
	db          *gorm.DB
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	permRepo    repositories.PermissionRepository
}

func NewAccountService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	permRepo repositories.PermissionRepository,
) AccountService {
	return &accountService{
		db:          db,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		permRepo:    permRepo,
	}
}

// ─── Registration & Login ─────────────────────────────────────────────────────

// Register creates the user and its profile in a single transaction. The
// profile is created by an explicit call into ensureProfile rather than a
// persistence hook, so the one-profile-per-user invariant has no hidden
// coupling behind it.
func (s *accountService) Register(username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Create(tx, user); err != nil {
			// The unique index on username decides the winner of concurrent
			// registrations.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			log.Printf("[ERROR] Register: failed to create user %q: %v", username, err)
			return err
		}
		profile, err := s.ensureProfile(tx, user.ID)
		if err != nil {
			log.Printf("[ERROR] Register: failed to create profile for %q: %v", username, err)
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Register: created user %q (id=%s) with role %s", username, user.ID, user.Profile.Role)
	return user, nil
}

// Authenticate verifies the credentials and returns the stored user with
// profile and permissions loaded.
func (s *accountService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(nil, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *accountService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ─── Role Classification ──────────────────────────────────────────────────────

// RoleOf derives the caller's role. A nil user classifies as Unauthenticated.
// An authenticated user without a profile, or with a role string outside the
// enumeration, is an inconsistent record and yields an error.
func (s *accountService) RoleOf(user *models.User) (models.Role, error) {
	if user == nil {
		return models.RoleUnauthenticated, nil
	}
	profile := user.Profile
	if profile == nil {
		loaded, err := s.profileRepo.GetByUser(nil, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrProfileMissing
			}
			return "", err
		}
		profile = loaded
	}
	if !profile.Role.Valid() {
		log.Printf("[WARN] RoleOf: user %s has unknown role %q", user.ID, profile.Role)
		return "", ErrInvalidRole
	}
	return profile.Role, nil
}

// ─── Profile Lifecycle ────────────────────────────────────────────────────────

// EnsureProfile creates the user's profile if it does not exist yet and is a
// no-op when it does, so repeated invocations for the same user cannot
// violate the at-most-one-profile invariant.
func (s *accountService) EnsureProfile(userID uuid.UUID) (*models.UserProfile, error) {
	return s.ensureProfile(nil, userID)
}

func (s *accountService) ensureProfile(tx *gorm.DB, userID uuid.UUID) (*models.UserProfile, error) {
	existing, err := s.profileRepo.GetByUser(tx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	profile := &models.UserProfile{
		UserID: userID,
		Role:   models.RoleMember,
	}
	if err := s.profileRepo.Create(tx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// saveUser re-persists a user and, when a profile exists, re-saves it too so
// profile-side recomputes (timestamps) propagate. A user without a profile is
// left alone rather than crashed on.
func (s *accountService) saveUser(tx *gorm.DB, user *models.User) error {
	if err := s.userRepo.Save(tx, user); err != nil {
		return err
	}
	profile, err := s.profileRepo.GetByUser(tx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] saveUser: user %s has no profile, skipping profile save", user.ID)
			return nil
		}
		return err
	}
	return s.profileRepo.Save(tx, profile)
}

// ─── Administration ───────────────────────────────────────────────────────────

// AssignRole sets the role on the user's profile.
func (s *accountService) AssignRole(userID uuid.UUID, role models.Role) (*models.UserProfile, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var profile *models.UserProfile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		profile, err = s.ensureProfile(tx, user.ID)
		if err != nil {
			return err
		}
		profile.Role = role
		if err := s.profileRepo.Save(tx, profile); err != nil {
			return err
		}
		return s.saveUser(tx, user)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] AssignRole: user %s is now %s", userID, role)
	return profile, nil
}

// GrantPermissions attaches the named capabilities to the user. Unknown
// codenames abort the whole grant.
func (s *accountService) GrantPermissions(userID uuid.UUID, codenames []string) (*models.User, error) {
	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.userRepo.GetByID(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		for _, codename := range codenames {
			perm, err := s.permRepo.GetByCodename(tx, codename)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUnknownPermission
				}
				return err
			}
			if user.HasPermission(codename) {
				continue
			}
			if err := s.userRepo.GrantPermission(tx, user, perm); err != nil {
				log.Printf("[ERROR] GrantPermissions: failed to grant %s to %s: %v", codename, userID, err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload so the returned user reflects the full permission set.
	user, err = s.userRepo.GetByID(nil, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] GrantPermissions: user %s now holds %d permission(s)", userID, len(user.Permissions))
	return user, nil
}
