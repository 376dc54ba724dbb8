package search

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"

	"library/internal/models"
)

const booksIndex = "books"

// BookIndex is the optional full-text index over the catalog. The catalog
// service treats a nil BookIndex as "not configured" and falls back to SQL.
type BookIndex interface {
	IndexBook(book *models.Book) error
	RemoveBook(id uuid.UUID) error
	Search(query string, limit int64) ([]uuid.UUID, error)
}

type meiliBookIndex struct {
	client meilisearch.ServiceManager
}

func NewMeiliBookIndex(client meilisearch.ServiceManager) BookIndex {
	s := &meiliBookIndex{client: client}
	s.initIndex()
	return s
}

func (s *meiliBookIndex) initIndex() {
	sortable := []string{"title"}
	if _, err := s.client.Index(booksIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("[WARN] search: failed to update books sortable attributes: %v", err)
	}
}

type bookDoc struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	AuthorName      string `json:"author_name"`
	PublicationYear int    `json:"publication_year"`
}

func (s *meiliBookIndex) IndexBook(book *models.Book) error {
	doc := bookDoc{
		ID:         book.ID.String(),
		Title:      book.Title,
		AuthorName: book.Author.Name,
	}
	if book.PublicationYear != nil {
		doc.PublicationYear = *book.PublicationYear
	}

	task, err := s.client.Index(booksIndex).AddDocuments([]bookDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("[INFO] search: indexed book %s, task id: %d", book.ID, task.TaskUID)
	return nil
}

func (s *meiliBookIndex) RemoveBook(id uuid.UUID) error {
	_, err := s.client.Index(booksIndex).DeleteDocument(id.String())
	return err
}

func (s *meiliBookIndex) Search(query string, limit int64) ([]uuid.UUID, error) {
	resp, err := s.client.Index(booksIndex).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	// Round-trip the hits through JSON; the hit payload shape is stable even
	// though the client's in-memory representation is not.
	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, err
	}
	var docs []bookDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			log.Printf("[WARN] search: skipping hit with bad id %q", doc.ID)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
