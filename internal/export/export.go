// Package export renders documents and compiled manuscripts as Markdown or
// as a standalone printable HTML page.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat maps a user-supplied name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: markdown, html)", s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

// Chapter is a titled block of text.
type Chapter struct {
	Title string
	Body  string
}

// md renders dictated prose: single newlines are kept as line breaks.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders a single document.
func Markdown(title, body string) string {
	return fmt.Sprintf("# %s\n\n%s\n", title, strings.TrimSpace(body))
}

// ManuscriptMarkdown renders a manuscript with one second-level heading per
// chapter.
func ManuscriptMarkdown(title string, chapters []Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, c := range chapters {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", c.Title, strings.TrimSpace(c.Body))
	}
	return b.String()
}

// RenderMarkdown converts markdown to an HTML fragment. On failure the input
// is returned escaped.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

type htmlChapter struct {
	Title string
	Body  template.HTML
}

type htmlPage struct {
	Title    string
	Chapters []htmlChapter
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, "Times New Roman", serif; max-width: 40em; margin: 2em auto; line-height: 1.6; }
h1.title { text-align: center; margin-bottom: 3em; }
h2.chapter { page-break-before: always; break-before: page; }
</style>
</head>
<body>
<h1 class="title">{{.Title}}</h1>
{{- range .Chapters}}
<section>
<h2 class="chapter" style="page-break-before: always">{{.Title}}</h2>
{{.Body}}
</section>
{{- end}}
</body>
</html>
`))

// HTML renders a printable page. Every chapter heading starts a new page.
func HTML(title string, chapters []Chapter) ([]byte, error) {
	page := htmlPage{Title: title}
	for _, c := range chapters {
		page.Chapters = append(page.Chapters, htmlChapter{
			Title: c.Title,
			Body:  RenderMarkdown(c.Body),
		})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// Render produces the export artifact for chapters in format f.
func Render(f Format, title string, chapters []Chapter) ([]byte, error) {
	if f == FormatHTML {
		return HTML(title, chapters)
	}
	if len(chapters) == 1 && chapters[0].Title == title {
		return []byte(Markdown(title, chapters[0].Body)), nil
	}
	return []byte(ManuscriptMarkdown(title, chapters)), nil
}
