package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"library/internal/models"
	"library/internal/repositories"
)

// newTestDB opens a throwaway in-memory database with the schema migrated
// and the default permissions seeded.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Author{},
		&models.Book{},
		&models.Library{},
		&models.Librarian{},
		&models.Permission{},
		&models.User{},
		&models.UserProfile{},
	))
	require.NoError(t, repositories.NewPermissionRepository(db).Seed(nil, models.DefaultPermissions()))
	return db
}

func newAccountService(db *gorm.DB) AccountService {
	return NewAccountService(
		db,
		repositories.NewUserRepository(db),
		repositories.NewProfileRepository(db),
		repositories.NewPermissionRepository(db),
	)
}

func newCatalogService(db *gorm.DB) CatalogService {
	return NewCatalogService(
		db,
		repositories.NewAuthorRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewLibraryRepository(db),
		repositories.NewLibrarianRepository(db),
		repositories.NewUserRepository(db),
		nil,
	)
}
