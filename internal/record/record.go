// Package record defines the persisted entities: manuscripts, documents
// (chapters or standalone notes), the user settings singleton and the backup
// blob that carries all of them.
package record

// Manuscript is a named container grouping an ordered set of chapters.
type Manuscript struct {
	// ID is a ULID that uniquely identifies this manuscript
	ID string `json:"id"`

	// Title is the display title
	Title string `json:"title"`

	// CreatedAt is the epoch-millisecond time of first save; never mutated
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the epoch-millisecond time of the last save
	UpdatedAt int64 `json:"updatedAt"`
}

// Document is a single unit of writing: a chapter of a manuscript or a
// standalone note.
type Document struct {
	// ID is a ULID that uniquely identifies this document
	ID string `json:"id"`

	// ManuscriptID is a weak back-reference to the owning manuscript.
	// Nil means the document is a standalone note.
	ManuscriptID *string `json:"manuscriptId,omitempty"`

	Title string `json:"title"`

	// RawText is the verbatim dictated or typed text
	RawText string `json:"rawText"`

	// PolishedText is the AI-cleaned variant; may be empty
	PolishedText string `json:"polishedText"`

	// Tags is an ordered sequence; duplicates are not removed
	Tags []string `json:"tags"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Body returns the polished text when present, else the raw text.
func (d *Document) Body() string {
	if d.PolishedText != "" {
		return d.PolishedText
	}
	return d.RawText
}

// InManuscript reports whether the document belongs to the given manuscript.
// A nil id matches standalone notes.
func (d *Document) InManuscript(manuscriptID *string) bool {
	if manuscriptID == nil {
		return d.ManuscriptID == nil
	}
	return d.ManuscriptID != nil && *d.ManuscriptID == *manuscriptID
}

// UserSettings is the process-wide settings singleton.
type UserSettings struct {
	UserName               string `json:"userName"`
	HasCompletedOnboarding bool   `json:"hasCompletedOnboarding"`
}

// BackupVersion is the format version written into every backup.
const BackupVersion = 1

// Backup is the whole-store export format.
type Backup struct {
	Manuscripts  []Manuscript  `json:"manuscripts"`
	Documents    []Document    `json:"documents"`
	UserSettings *UserSettings `json:"userSettings"`
	Version      int           `json:"version"`
	Timestamp    int64         `json:"timestamp"`
}
