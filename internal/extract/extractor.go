package extract

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/koopa0/artivault/internal/artifact"
)

// Extractor scans parsed conversation markup for artifact containers
// and produces artifact records in document order.
type Extractor struct {
	sel    Selectors
	logger *slog.Logger
	now    func() time.Time
}

// NewExtractor creates an Extractor with the given selectors.
// Empty selector fields fall back to DefaultSelectors.
func NewExtractor(sel Selectors, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		sel:    sel.merge(),
		logger: logger,
		now:    time.Now,
	}
}

// ExtractReader parses HTML from r and extracts all artifacts.
func (e *Extractor) ExtractReader(r io.Reader) ([]artifact.Artifact, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing conversation markup: %w", err)
	}
	return e.Extract(doc), nil
}

// Extract walks all artifact containers under doc and classifies each
// into a record. Containers that fail classification are skipped with
// a warning; they never abort the batch. A document with no containers
// yields an empty slice, not an error.
func (e *Extractor) Extract(doc *goquery.Document) []artifact.Artifact {
	var out []artifact.Artifact
	stamp := e.now().UTC()

	doc.Find(e.sel.Container).Each(func(i int, container *goquery.Selection) {
		a, err := e.extractOne(container, i+1, stamp)
		if err != nil {
			e.logger.Warn("skipping artifact container",
				"index", i+1,
				"error", err)
			return
		}
		out = append(out, a)
	})

	return out
}

// extractOne classifies a single container. Malformed markup can make
// serialization panic deep inside the parser, so the whole container
// is guarded; a recovered panic becomes a per-container error.
func (e *Extractor) extractOne(container *goquery.Selection, index int, stamp time.Time) (a artifact.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container %d: %v", index, r)
		}
	}()

	typ, content, language, cerr := e.classify(container)
	if cerr != nil {
		return artifact.Artifact{}, fmt.Errorf("container %d: %w", index, cerr)
	}

	a = artifact.New(e.title(container, index), typ, content, stamp)
	a.Language = language
	return a, nil
}

// classify applies the signal priority order. The order is fixed
// because containers can satisfy multiple weaker signals at once: a
// code container also matches the markdown catch-all, an html marker
// may wrap an svg, and so on. First match wins.
func (e *Extractor) classify(container *goquery.Selection) (artifact.Type, string, string, error) {
	if code := container.Find(e.sel.CodeBlock).First(); code.Length() > 0 {
		return artifact.TypeCode, code.Text(), codeLanguage(code), nil
	}

	if svg := container.Find("svg").First(); svg.Length() > 0 {
		markup, err := goquery.OuterHtml(svg)
		if err != nil {
			return "", "", "", fmt.Errorf("serializing svg: %w", err)
		}
		return artifact.TypeSVG, markup, "", nil
	}

	if node := container.Find(e.sel.HTMLMarker).First(); node.Length() > 0 {
		inner, err := node.Html()
		if err != nil {
			return "", "", "", fmt.Errorf("serializing html artifact: %w", err)
		}
		return artifact.TypeHTML, inner, "", nil
	}

	if node := container.Find(e.sel.ReactMarker).First(); node.Length() > 0 {
		return artifact.TypeReact, node.Text(), "", nil
	}

	if node := container.Find(e.sel.MermaidMarker).First(); node.Length() > 0 {
		return artifact.TypeMermaid, node.Text(), "", nil
	}

	// Catch-all: plain conversation prose is a markdown artifact.
	inner, err := container.Html()
	if err != nil {
		return artifact.TypeMarkdown, container.Text(), "", nil
	}
	return artifact.TypeMarkdown, inner, "", nil
}

// title returns the trimmed designated title, or the positional
// placeholder "Artifact N" when the container has none.
func (e *Extractor) title(container *goquery.Selection, index int) string {
	t := strings.TrimSpace(container.Find(e.sel.Title).First().Text())
	if t == "" {
		return fmt.Sprintf("Artifact %d", index)
	}
	return t
}

// codeLanguage reads the language tag off a code element, preferring
// an explicit data attribute over the conventional class prefix.
// Returns "" when no marker is present.
func codeLanguage(code *goquery.Selection) string {
	if lang, ok := code.Attr("data-language"); ok && lang != "" {
		return strings.ToLower(strings.TrimSpace(lang))
	}

	class, ok := code.Attr("class")
	if !ok {
		return ""
	}
	for _, c := range strings.Fields(class) {
		if rest, found := strings.CutPrefix(c, languageClassPrefix); found && rest != "" {
			return strings.ToLower(rest)
		}
	}
	return ""
}
