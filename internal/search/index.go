// Package search keeps an in-memory full-text index over documents.
package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// DefaultLimit is the number of hits returned when no limit is given.
const DefaultLimit = 20

// Index wraps an in-memory Bleve index. It is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// indexedDocument is the shape stored in the index.
type indexedDocument struct {
	ID           string
	ManuscriptID string
	Title        string
	Text         string
	Tags         []string
}

// Hit is a single search result.
type Hit struct {
	ID           string              `json:"id"`
	ManuscriptID string              `json:"manuscriptId,omitempty"`
	Title        string              `json:"title"`
	Score        float64             `json:"score"`
	Fragments    map[string][]string `json:"fragments,omitempty"`
}

// New creates an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	// English analyzer on titles for stemming
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("ManuscriptID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Text", textFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

func toIndexed(doc record.Document) *indexedDocument {
	out := &indexedDocument{
		ID:    doc.ID,
		Title: doc.Title,
		Text:  strings.TrimSpace(doc.RawText + "\n" + doc.PolishedText),
		Tags:  doc.Tags,
	}
	if doc.ManuscriptID != nil {
		out.ManuscriptID = *doc.ManuscriptID
	}
	return out
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

// Index adds or replaces a document.
func (i *Index) Index(doc record.Document) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Index(doc.ID, toIndexed(doc))
}

// Delete removes a document. Removing an unknown id is not an error.
func (i *Index) Delete(id string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(id)
}

// Rebuild replaces the whole index with docs.
func (i *Index) Rebuild(docs []record.Document) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, toIndexed(doc)); err != nil {
			fresh.Close()
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("commit batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.mu.Unlock()
	return old.Close()
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Search runs a query string query (quotes, +/-, field:value and fuzzy ~
// are supported) and returns hits ordered by score.
func (i *Index) Search(queryStr string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := bleve.NewQueryStringQuery(queryStr)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title", "ManuscriptID"}

	i.mu.RLock()
	results, err := i.index.Search(req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hit := Hit{
			ID:        h.ID,
			Score:     h.Score,
			Fragments: h.Fragments,
		}
		if title, ok := h.Fields["Title"].(string); ok {
			hit.Title = title
		}
		if mid, ok := h.Fields["ManuscriptID"].(string); ok {
			hit.ManuscriptID = mid
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
