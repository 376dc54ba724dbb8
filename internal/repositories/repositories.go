package repositories

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library/internal/models"
)

type AuthorRepository interface {
	Create(db *gorm.DB, author *models.Author) error
	List(db *gorm.DB) ([]models.Author, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Author, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	Save(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	ListByIDs(db *gorm.DB, ids []uuid.UUID) ([]models.Book, error)
	Search(db *gorm.DB, query string) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	Delete(db *gorm.DB, id uuid.UUID) error
	Count(db *gorm.DB) (int64, error)
}

type LibraryRepository interface {
	Create(db *gorm.DB, library *models.Library) error
	List(db *gorm.DB) ([]models.Library, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Library, error)
	Count(db *gorm.DB) (int64, error)
}

type LibrarianRepository interface {
	Create(db *gorm.DB, librarian *models.Librarian) error
	GetByLibrary(db *gorm.DB, libraryID uuid.UUID) (*models.Librarian, error)
	GetByName(db *gorm.DB, name string) (*models.Librarian, error)
}

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	Save(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByUsername(db *gorm.DB, username string) (*models.User, error)
	GrantPermission(db *gorm.DB, user *models.User, perm *models.Permission) error
	Count(db *gorm.DB) (int64, error)
}

type ProfileRepository interface {
	GetByUser(db *gorm.DB, userID uuid.UUID) (*models.UserProfile, error)
	Create(db *gorm.DB, profile *models.UserProfile) error
	Save(db *gorm.DB, profile *models.UserProfile) error
}

type PermissionRepository interface {
	GetByCodename(db *gorm.DB, codename string) (*models.Permission, error)
	Seed(db *gorm.DB, perms []models.Permission) error
}

// concrete implementations

type authorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(db *gorm.DB, author *models.Author) error {
	if db == nil {
		db = r.db
	}
	return db.Create(author).Error
}

func (r *authorRepository) List(db *gorm.DB) ([]models.Author, error) {
	if db == nil {
		db = r.db
	}
	var authors []models.Author
	if err := db.Order("name").Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *authorRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Author, error) {
	if db == nil {
		db = r.db
	}
	var author models.Author
	if err := db.First(&author, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) Save(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Save(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Preload("Author").Order("title").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) ListByIDs(db *gorm.DB, ids []uuid.UUID) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Preload("Author").Where("id IN ?", ids).Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Search(db *gorm.DB, query string) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	// LOWER keeps the match case-insensitive on both postgres and sqlite.
	pattern := "%" + strings.ToLower(query) + "%"
	err := db.Preload("Author").
		Joins("JOIN authors ON authors.id = books.author_id").
		Where("LOWER(books.title) LIKE ? OR LOWER(authors.name) LIKE ?", pattern, pattern).
		Order("books.title").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.Preload("Author").First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

func (r *bookRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	if err := db.Model(&models.Book{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type libraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

func (r *libraryRepository) Create(db *gorm.DB, library *models.Library) error {
	if db == nil {
		db = r.db
	}
	return db.Create(library).Error
}

func (r *libraryRepository) List(db *gorm.DB) ([]models.Library, error) {
	if db == nil {
		db = r.db
	}
	var libraries []models.Library
	if err := db.Order("name").Find(&libraries).Error; err != nil {
		return nil, err
	}
	return libraries, nil
}

func (r *libraryRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Library, error) {
	if db == nil {
		db = r.db
	}
	var library models.Library
	err := db.Preload("Books").Preload("Books.Author").First(&library, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &library, nil
}

func (r *libraryRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	if err := db.Model(&models.Library{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type librarianRepository struct {
	db *gorm.DB
}

func NewLibrarianRepository(db *gorm.DB) LibrarianRepository {
	return &librarianRepository{db: db}
}

func (r *librarianRepository) Create(db *gorm.DB, librarian *models.Librarian) error {
	if db == nil {
		db = r.db
	}
	return db.Create(librarian).Error
}

func (r *librarianRepository) GetByLibrary(db *gorm.DB, libraryID uuid.UUID) (*models.Librarian, error) {
	if db == nil {
		db = r.db
	}
	var librarian models.Librarian
	if err := db.First(&librarian, "library_id = ?", libraryID).Error; err != nil {
		return nil, err
	}
	return &librarian, nil
}

func (r *librarianRepository) GetByName(db *gorm.DB, name string) (*models.Librarian, error) {
	if db == nil {
		db = r.db
	}
	var librarian models.Librarian
	if err := db.First(&librarian, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &librarian, nil
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) Save(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	// Saving the bare columns; association changes go through GrantPermission.
	return db.Omit("Permissions", "Profile").Save(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	err := db.Preload("Profile").Preload("Permissions").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	err := db.Preload("Profile").Preload("Permissions").First(&user, "username = ?", username).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GrantPermission(db *gorm.DB, user *models.User, perm *models.Permission) error {
	if db == nil {
		db = r.db
	}
	return db.Model(user).Association("Permissions").Append(perm)
}

func (r *userRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUser(db *gorm.DB, userID uuid.UUID) (*models.UserProfile, error) {
	if db == nil {
		db = r.db
	}
	var profile models.UserProfile
	if err := db.First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Create(db *gorm.DB, profile *models.UserProfile) error {
	if db == nil {
		db = r.db
	}
	return db.Create(profile).Error
}

func (r *profileRepository) Save(db *gorm.DB, profile *models.UserProfile) error {
	if db == nil {
		db = r.db
	}
	return db.Save(profile).Error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) GetByCodename(db *gorm.DB, codename string) (*models.Permission, error) {
	if db == nil {
		db = r.db
	}
	var perm models.Permission
	if err := db.First(&perm, "codename = ?", codename).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) Seed(db *gorm.DB, perms []models.Permission) error {
	if db == nil {
		db = r.db
	}
	for i := range perms {
		var count int64
		if err := db.Model(&models.Permission{}).
			Where("codename = ?", perms[i].Codename).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&perms[i]).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
