package store

import (
	"strings"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/search"
)

// SearchDocuments queries the document index.
func (s *Store) SearchDocuments(query string, limit int) ([]search.Hit, error) {
	if s.index == nil {
		return nil, errors.NewCapabilityUnavailable("search", nil)
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	hits, err := s.index.Search(query, limit)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return hits, nil
}
