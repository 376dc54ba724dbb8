package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library/internal/models"
	"library/internal/services"
)

// CatalogHandler serves the public catalog pages and the permission-gated
// book mutations. The mutation endpoints mimic form handling: GET returns the
// form context, a POST missing a required field re-renders that context
// without an error, and a complete POST persists and redirects to the list.
type CatalogHandler struct {
	svc services.CatalogService
}

func NewCatalogHandler(svc services.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// listBooks handles GET /books/. Public. ?q= narrows the catalog.
func (h *CatalogHandler) listBooks(c *gin.Context) {
	books, err := h.svc.ListBooks(c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// viewLibrary handles GET /library/:id/. Public.
func (h *CatalogHandler) viewLibrary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid library id"})
		return
	}
	detail, err := h.svc.GetLibrary(id)
	if err != nil {
		if errors.Is(err, services.ErrLibraryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "library not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// bookForm is the context an add/edit form round-trips.
type bookForm struct {
	Title           string `json:"title"`
	AuthorID        string `json:"author_id"`
	PublicationYear string `json:"publication_year,omitempty"`
}

func (h *CatalogHandler) renderBookForm(c *gin.Context, form bookForm, book *models.Book) {
	authors, err := h.svc.ListAuthors()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	payload := gin.H{"form": form, "authors": authors}
	if book != nil {
		payload["book"] = book
	}
	c.JSON(http.StatusOK, payload)
}

// addBookForm handles GET /add_book/. Gate: can_add_book.
func (h *CatalogHandler) addBookForm(c *gin.Context) {
	h.renderBookForm(c, bookForm{}, nil)
}

// addBook handles POST /add_book/. Gate: can_add_book.
//
// Both title and author_id must be present; if either is missing the form is
// re-rendered with no error surfaced, and nothing is persisted.
func (h *CatalogHandler) addBook(c *gin.Context) {
	form := bookForm{
		Title:           c.PostForm("title"),
		AuthorID:        c.PostForm("author_id"),
		PublicationYear: c.PostForm("publication_year"),
	}
	if form.Title == "" || form.AuthorID == "" {
		h.renderBookForm(c, form, nil)
		return
	}

	authorID, err := uuid.Parse(form.AuthorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}
	year, ok := parseYear(c, form.PublicationYear)
	if !ok {
		return
	}

	if _, err := h.svc.AddBook(form.Title, authorID, year); err != nil {
		if errors.Is(err, services.ErrAuthorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "author not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, "/books/")
}

// editBookForm handles GET /edit_book/:id/. Gate: can_change_book.
func (h *CatalogHandler) editBookForm(c *gin.Context) {
	book, ok := h.lookupBook(c)
	if !ok {
		return
	}
	form := bookForm{
		Title:    book.Title,
		AuthorID: book.AuthorID.String(),
	}
	if book.PublicationYear != nil {
		form.PublicationYear = strconv.Itoa(*book.PublicationYear)
	}
	h.renderBookForm(c, form, book)
}

// editBook handles POST /edit_book/:id/. Gate: can_change_book. Same
// missing-field leniency as addBook; the book keeps its identity.
func (h *CatalogHandler) editBook(c *gin.Context) {
	book, ok := h.lookupBook(c)
	if !ok {
		return
	}

	form := bookForm{
		Title:           c.PostForm("title"),
		AuthorID:        c.PostForm("author_id"),
		PublicationYear: c.PostForm("publication_year"),
	}
	if form.Title == "" || form.AuthorID == "" {
		h.renderBookForm(c, form, book)
		return
	}

	authorID, err := uuid.Parse(form.AuthorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}
	year, ok := parseYear(c, form.PublicationYear)
	if !ok {
		return
	}

	if _, err := h.svc.EditBook(book.ID, form.Title, authorID, year); err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		case errors.Is(err, services.ErrAuthorNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "author not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.Redirect(http.StatusFound, "/books/")
}

// confirmDeleteBook handles GET /delete_book/:id/. Gate: can_delete_book.
// Renders the confirmation context without mutating anything.
func (h *CatalogHandler) confirmDeleteBook(c *gin.Context) {
	book, ok := h.lookupBook(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book, "confirm": "POST to delete this book"})
}

// deleteBook handles POST /delete_book/:id/. Gate: can_delete_book.
func (h *CatalogHandler) deleteBook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	if err := h.svc.DeleteBook(id); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, "/books/")
}

// listAuthors handles GET /authors/. Public: it feeds the add_book form.
func (h *CatalogHandler) listAuthors(c *gin.Context) {
	authors, err := h.svc.ListAuthors()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

type createAuthorRequest struct {
	Name string `json:"name" binding:"required"`
}

// createAuthor handles POST /authors/. Gate: role=Admin.
func (h *CatalogHandler) createAuthor(c *gin.Context) {
	var req createAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	author, err := h.svc.CreateAuthor(req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, author)
}

type createLibraryRequest struct {
	Name    string   `json:"name" binding:"required"`
	BookIDs []string `json:"book_ids"`
}

// createLibrary handles POST /libraries/. Gate: role=Admin.
func (h *CatalogHandler) createLibrary(c *gin.Context) {
	var req createLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookIDs := make([]uuid.UUID, 0, len(req.BookIDs))
	for _, raw := range req.BookIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
			return
		}
		bookIDs = append(bookIDs, id)
	}
	library, err := h.svc.CreateLibrary(req.Name, bookIDs)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, library)
}

type createLibrarianRequest struct {
	Name      string `json:"name" binding:"required"`
	LibraryID string `json:"library_id" binding:"required,uuid"`
}

// createLibrarian handles POST /librarians/. Gate: role=Admin.
func (h *CatalogHandler) createLibrarian(c *gin.Context) {
	var req createLibrarianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	libraryID, err := uuid.Parse(req.LibraryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid library id"})
		return
	}
	librarian, err := h.svc.CreateLibrarian(req.Name, libraryID)
	if err != nil {
		if errors.Is(err, services.ErrLibraryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "library not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, librarian)
}

func (h *CatalogHandler) lookupBook(c *gin.Context) (*models.Book, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return nil, false
	}
	book, err := h.svc.GetBook(id)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return book, true
}

func parseYear(c *gin.Context, raw string) (*int, bool) {
	if raw == "" {
		return nil, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid publication year"})
		return nil, false
	}
	return &year, true
}
