package record

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanTags trims each tag and drops blank ones. Order and duplicates are kept.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// CollapseSpaces trims s and collapses internal whitespace to single spaces.
func CollapseSpaces(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountWords returns the number of whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// DefaultTitleWords is how many words of the text an untitled document's
// title is built from.
const DefaultTitleWords = 6

// TidyDocument prepares a document entered by the user for saving. The
// title is trimmed and collapsed, or derived from the text when empty; blank
// tags are dropped; a blank manuscript id means none.
func TidyDocument(d Document) Document {
	d.Title = CollapseSpaces(d.Title)
	if d.Title == "" {
		text := d.RawText
		if strings.TrimSpace(text) == "" {
			text = d.PolishedText
		}
		d.Title = DefaultTitle(text, DefaultTitleWords)
	}
	if d.ManuscriptID != nil {
		id := strings.TrimSpace(*d.ManuscriptID)
		if id == "" {
			d.ManuscriptID = nil
		} else {
			d.ManuscriptID = &id
		}
	}
	d.Tags = CleanTags(d.Tags)
	return d
}

// DefaultTitle derives a title from the first words of text, used when a
// dictation is saved without one.
func DefaultTitle(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "Untitled"
	}
	if len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "…"
	}
	return strings.Join(words, " ")
}
