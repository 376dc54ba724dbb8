package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/models"
)

func seedAuthor(t *testing.T, svc CatalogService, name string) *models.Author {
	t.Helper()
	author, err := svc.CreateAuthor(name)
	require.NoError(t, err)
	return author
}

func TestAddBookAndList(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	author := seedAuthor(t, svc, "J.K. Rowling")

	year := 1997
	book, err := svc.AddBook("Harry Potter and the Philosopher's Stone", author.ID, &year)
	require.NoError(t, err)
	assert.Equal(t, author.ID, book.AuthorID)
	require.NotNil(t, book.PublicationYear)
	assert.Equal(t, 1997, *book.PublicationYear)

	books, err := svc.ListBooks("")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, book.ID, books[0].ID)
	assert.Equal(t, "J.K. Rowling", books[0].Author.Name)
}

func TestAddBookUnknownAuthor(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	_, err := svc.AddBook("Orphaned Manuscript", uuid.New(), nil)
	assert.ErrorIs(t, err, ErrAuthorNotFound)

	books, err := svc.ListBooks("")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestListBooksQueryFallsBackToSQL(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db) // no index configured

	rowling := seedAuthor(t, svc, "J.K. Rowling")
	tolkien := seedAuthor(t, svc, "J.R.R. Tolkien")

	_, err := svc.AddBook("Harry Potter and the Chamber of Secrets", rowling.ID, nil)
	require.NoError(t, err)
	hobbit, err := svc.AddBook("The Hobbit", tolkien.ID, nil)
	require.NoError(t, err)

	byTitle, err := svc.ListBooks("Hobbit")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, hobbit.ID, byTitle[0].ID)

	byAuthor, err := svc.ListBooks("Rowling")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Harry Potter and the Chamber of Secrets", byAuthor[0].Title)

	none, err := svc.ListBooks("Dune")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListBooksQueryIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	tolkien := seedAuthor(t, svc, "J.R.R. Tolkien")
	hobbit, err := svc.AddBook("The Hobbit", tolkien.ID, nil)
	require.NoError(t, err)

	for _, query := range []string{"hobbit", "HOBBIT", "tolkien"} {
		books, err := svc.ListBooks(query)
		require.NoError(t, err)
		require.Len(t, books, 1, "query %q", query)
		assert.Equal(t, hobbit.ID, books[0].ID)
	}
}

func TestEditBookKeepsIdentity(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	first := seedAuthor(t, svc, "First Author")
	second := seedAuthor(t, svc, "Second Author")

	book, err := svc.AddBook("Draft Title", first.ID, nil)
	require.NoError(t, err)

	updated, err := svc.EditBook(book.ID, "Final Title", second.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, book.ID, updated.ID)
	assert.Equal(t, "Final Title", updated.Title)
	assert.Equal(t, second.ID, updated.AuthorID)

	var count int64
	require.NoError(t, db.Model(&models.Book{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEditBookNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	author := seedAuthor(t, svc, "Some Author")
	_, err := svc.EditBook(uuid.New(), "Title", author.ID, nil)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestDeleteBook(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	author := seedAuthor(t, svc, "Some Author")
	book, err := svc.AddBook("Ephemeral", author.ID, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(book.ID))

	books, err := svc.ListBooks("")
	require.NoError(t, err)
	assert.Empty(t, books)

	assert.ErrorIs(t, svc.DeleteBook(book.ID), ErrBookNotFound)
}

func TestLibraryDetail(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	author := seedAuthor(t, svc, "J.K. Rowling")
	book, err := svc.AddBook("Harry Potter and the Goblet of Fire", author.ID, nil)
	require.NoError(t, err)

	library, err := svc.CreateLibrary("Central Library", []uuid.UUID{book.ID})
	require.NoError(t, err)

	librarian, err := svc.CreateLibrarian("Madam Pince", library.ID)
	require.NoError(t, err)

	detail, err := svc.GetLibrary(library.ID)
	require.NoError(t, err)
	assert.Equal(t, "Central Library", detail.Library.Name)
	require.Len(t, detail.Library.Books, 1)
	assert.Equal(t, book.ID, detail.Library.Books[0].ID)
	assert.Equal(t, "J.K. Rowling", detail.Library.Books[0].Author.Name)
	require.NotNil(t, detail.Librarian)
	assert.Equal(t, librarian.ID, detail.Librarian.ID)
}

func TestLibraryNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	_, err := svc.GetLibrary(uuid.New())
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestCreateLibraryRejectsUnknownBooks(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	_, err := svc.CreateLibrary("Phantom Branch", []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestCreateLibrarianUnknownLibrary(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalogService(db)

	_, err := svc.CreateLibrarian("Nobody", uuid.New())
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	catalog := newCatalogService(db)
	accounts := newAccountService(db)

	_, err := accounts.Register("alice", "s3cretpass")
	require.NoError(t, err)

	author := seedAuthor(t, catalog, "Some Author")
	_, err = catalog.AddBook("Counted Once", author.ID, nil)
	require.NoError(t, err)
	_, err = catalog.CreateLibrary("Branch", nil)
	require.NoError(t, err)

	stats, err := catalog.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Users)
	assert.EqualValues(t, 1, stats.Books)
	assert.EqualValues(t, 1, stats.Libraries)
}
