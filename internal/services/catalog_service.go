package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library/internal/models"
	"library/internal/repositories"
	"library/internal/search"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrAuthorNotFound is returned when the referenced author does not exist.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrLibraryNotFound is returned when the requested library does not exist.
	ErrLibraryNotFound = errors.New("library not found")

	// ErrLibrarianNotFound is returned when a library has no librarian assigned.
	ErrLibrarianNotFound = errors.New("librarian not found")
)

// ─── Types ────────────────────────────────────────────────────────────────────

// LibraryDetail is the view_library payload: a library, its books with their
// authors, and the librarian when one is assigned.
type LibraryDetail struct {
	Library   *models.Library   `json:"library"`
	Librarian *models.Librarian `json:"librarian,omitempty"`
}

// CatalogStats backs the admin dashboard summary.
type CatalogStats struct {
	Users     int64 `json:"users"`
	Books     int64 `json:"books"`
	Libraries int64 `json:"libraries"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// CatalogService defines the application-level operations over the catalog.
// Authorization is not decided here; the gates run in middleware before any
// of the mutation methods are reached.
type CatalogService interface {
	ListBooks(query string) ([]models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	AddBook(title string, authorID uuid.UUID, publicationYear *int) (*models.Book, error)
	EditBook(id uuid.UUID, title string, authorID uuid.UUID, publicationYear *int) (*models.Book, error)
	DeleteBook(id uuid.UUID) error

	GetLibrary(id uuid.UUID) (*LibraryDetail, error)
	ListLibraries() ([]models.Library, error)
	CreateLibrary(name string, bookIDs []uuid.UUID) (*models.Library, error)
	CreateLibrarian(name string, libraryID uuid.UUID) (*models.Librarian, error)

	CreateAuthor(name string) (*models.Author, error)
	ListAuthors() ([]models.Author, error)

	Stats() (*CatalogStats, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db            *gorm.DB
	authorRepo    repositories.AuthorRepository
	bookRepo      repositories.BookRepository
	libraryRepo   repositories.LibraryRepository
	librarianRepo repositories.LibrarianRepository
	userRepo      repositories.UserRepository
	index         search.BookIndex
}

// NewCatalogService wires up all dependencies and returns a CatalogService.
// index may be nil; searching then falls back to the database.
func NewCatalogService(
	db *gorm.DB,
	authorRepo repositories.AuthorRepository,
	bookRepo repositories.BookRepository,
	libraryRepo repositories.LibraryRepository,
	librarianRepo repositories.LibrarianRepository,
	userRepo repositories.UserRepository,
	index search.BookIndex,
) CatalogService {
	return &catalogService{
		db:            db,
		authorRepo:    authorRepo,
		bookRepo:      bookRepo,
		libraryRepo:   libraryRepo,
		librarianRepo: librarianRepo,
		userRepo:      userRepo,
		index:         index,
	}
}

// ─── Books ────────────────────────────────────────────────────────────────────

// ListBooks returns the whole catalog with authors. A non-empty query narrows
// the result, via the search index when configured and a SQL pattern match
// otherwise.
func (s *catalogService) ListBooks(query string) ([]models.Book, error) {
	if query == "" {
		return s.bookRepo.List(nil)
	}

	if s.index != nil {
		ids, err := s.index.Search(query, 50)
		if err == nil {
			if len(ids) == 0 {
				return []models.Book{}, nil
			}
			return s.bookRepo.ListByIDs(nil, ids)
		}
		log.Printf("[WARN] ListBooks: index search failed, falling back to SQL: %v", err)
	}
	return s.bookRepo.Search(nil, query)
}

func (s *catalogService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// AddBook resolves the author and creates the book. The caller has already
// passed the can_add_book gate.
func (s *catalogService) AddBook(title string, authorID uuid.UUID, publicationYear *int) (*models.Book, error) {
	var book *models.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		author, err := s.authorRepo.GetByID(tx, authorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAuthorNotFound
			}
			return err
		}
		book = &models.Book{
			Title:           title,
			AuthorID:        author.ID,
			Author:          *author,
			PublicationYear: publicationYear,
		}
		if err := s.bookRepo.Create(tx, book); err != nil {
			log.Printf("[ERROR] AddBook: failed to create book %q: %v", title, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.indexBook(book)
	log.Printf("[INFO] AddBook: created book %q (id=%s) by author %s", book.Title, book.ID, book.AuthorID)
	return book, nil
}

// EditBook mutates the book in place; its identity never changes.
func (s *catalogService) EditBook(id uuid.UUID, title string, authorID uuid.UUID, publicationYear *int) (*models.Book, error) {
	var book *models.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		book, err = s.bookRepo.GetByID(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		author, err := s.authorRepo.GetByID(tx, authorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAuthorNotFound
			}
			return err
		}
		book.Title = title
		book.AuthorID = author.ID
		book.Author = *author
		if publicationYear != nil {
			book.PublicationYear = publicationYear
		}
		if err := s.bookRepo.Save(tx, book); err != nil {
			log.Printf("[ERROR] EditBook: failed to save book %s: %v", id, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.indexBook(book)
	log.Printf("[INFO] EditBook: updated book %s (%q)", book.ID, book.Title)
	return book, nil
}

// DeleteBook removes the book. Missing books surface as ErrBookNotFound so
// the handler can respond 404 instead of pretending the delete happened.
func (s *catalogService) DeleteBook(id uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		return s.bookRepo.Delete(tx, id)
	})
	if err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.RemoveBook(id); err != nil {
			log.Printf("[WARN] DeleteBook: failed to remove book %s from index: %v", id, err)
		}
	}
	log.Printf("[INFO] DeleteBook: deleted book %s", id)
	return nil
}

func (s *catalogService) indexBook(book *models.Book) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexBook(book); err != nil {
		log.Printf("[WARN] indexBook: failed to index book %s: %v", book.ID, err)
	}
}

// ─── Libraries ────────────────────────────────────────────────────────────────

// GetLibrary returns the library with its book collection and, when one is
// assigned, its librarian.
func (s *catalogService) GetLibrary(id uuid.UUID) (*LibraryDetail, error) {
	library, err := s.libraryRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLibraryNotFound
		}
		return nil, err
	}

	detail := &LibraryDetail{Library: library}
	librarian, err := s.librarianRepo.GetByLibrary(nil, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		detail.Librarian = librarian
	}
	return detail, nil
}

func (s *catalogService) ListLibraries() ([]models.Library, error) {
	return s.libraryRepo.List(nil)
}

// CreateLibrary creates a library and attaches any referenced books to its
// collection. Unknown book ids abort the creation.
func (s *catalogService) CreateLibrary(name string, bookIDs []uuid.UUID) (*models.Library, error) {
	library := &models.Library{Name: name}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(bookIDs) > 0 {
			books, err := s.bookRepo.ListByIDs(tx, bookIDs)
			if err != nil {
				return err
			}
			if len(books) != len(bookIDs) {
				return ErrBookNotFound
			}
			library.Books = books
		}
		if err := s.libraryRepo.Create(tx, library); err != nil {
			log.Printf("[ERROR] CreateLibrary: failed to create library %q: %v", name, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateLibrary: created library %q (id=%s) with %d book(s)", name, library.ID, len(library.Books))
	return library, nil
}

// CreateLibrarian assigns a librarian to a library (one per library).
func (s *catalogService) CreateLibrarian(name string, libraryID uuid.UUID) (*models.Librarian, error) {
	librarian := &models.Librarian{Name: name, LibraryID: libraryID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.libraryRepo.GetByID(tx, libraryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLibraryNotFound
			}
			return err
		}
		return s.librarianRepo.Create(tx, librarian)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateLibrarian: %q now staffs library %s", name, libraryID)
	return librarian, nil
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (s *catalogService) CreateAuthor(name string) (*models.Author, error) {
	author := &models.Author{Name: name}
	if err := s.authorRepo.Create(nil, author); err != nil {
		log.Printf("[ERROR] CreateAuthor: failed to create author %q: %v", name, err)
		return nil, err
	}
	log.Printf("[INFO] CreateAuthor: created author %q (id=%s)", name, author.ID)
	return author, nil
}

func (s *catalogService) ListAuthors() ([]models.Author, error) {
	return s.authorRepo.List(nil)
}

// ─── Stats ────────────────────────────────────────────────────────────────────

func (s *catalogService) Stats() (*CatalogStats, error) {
	users, err := s.userRepo.Count(nil)
	if err != nil {
		return nil, err
	}
	books, err := s.bookRepo.Count(nil)
	if err != nil {
		return nil, err
	}
	libraries, err := s.libraryRepo.Count(nil)
	if err != nil {
		return nil, err
	}
	return &CatalogStats{Users: users, Books: books, Libraries: libraries}, nil
}
