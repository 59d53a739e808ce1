// Package preview renders artifact content to HTML for display.
//
// Markdown artifacts render through goldmark with GitHub-flavored
// extensions. Mermaid sources are wrapped in a <pre class="mermaid">
// block for client-side rendering; html and svg artifacts are already
// markup and pass through untouched. Code artifacts render as a
// fenced block so the client can highlight them.
package preview

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/koopa0/artivault/internal/artifact"
)

// Renderer converts artifact content to preview HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer with table and strikethrough support.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		),
	}
}

// Render returns HTML for one artifact.
func (r *Renderer) Render(a artifact.Artifact) (string, error) {
	switch a.Type {
	case artifact.TypeMarkdown:
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(a.Content), &buf); err != nil {
			return "", fmt.Errorf("rendering markdown: %w", err)
		}
		return buf.String(), nil

	case artifact.TypeHTML, artifact.TypeSVG:
		return a.Content, nil

	case artifact.TypeMermaid:
		return `<pre class="mermaid">` + html.EscapeString(a.Content) + `</pre>`, nil

	case artifact.TypeCode, artifact.TypeReact:
		lang := a.Language
		if a.Type == artifact.TypeReact {
			lang = "jsx"
		}
		return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`,
			html.EscapeString(lang), html.EscapeString(a.Content)), nil

	default:
		return `<pre>` + html.EscapeString(a.Content) + `</pre>`, nil
	}
}
