package extract

// Selectors identifies artifact-bearing markup inside a conversation
// export. All fields are CSS selector groups understood by goquery.
//
// The defaults target the chat export format this tool ships against;
// other host page versions are supported by overriding these values in
// configuration.
type Selectors struct {
	// Container matches the boundary element wrapping one artifact.
	Container string `mapstructure:"container" json:"container"`

	// Title matches the designated title element inside a container.
	Title string `mapstructure:"title" json:"title"`

	// CodeBlock matches the code element inside a container.
	CodeBlock string `mapstructure:"code_block" json:"code_block"`

	// HTMLMarker matches the node designating an html artifact; its
	// inner markup becomes the artifact content.
	HTMLMarker string `mapstructure:"html_marker" json:"html_marker"`

	// ReactMarker matches the node designating a react artifact.
	ReactMarker string `mapstructure:"react_marker" json:"react_marker"`

	// MermaidMarker matches the node carrying mermaid diagram source.
	MermaidMarker string `mapstructure:"mermaid_marker" json:"mermaid_marker"`
}

// languageClassPrefix is the class prefix carrying the language tag on
// code elements (e.g. "language-python").
const languageClassPrefix = "language-"

// DefaultSelectors returns the selector set for the supported chat
// export format.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:     "div[data-artifact-id], div.artifact-block",
		Title:         ".artifact-title, [data-artifact-title]",
		CodeBlock:     "pre code",
		HTMLMarker:    `[data-artifact-type="html"]`,
		ReactMarker:   `[data-artifact-type="react"]`,
		MermaidMarker: `[data-artifact-type="mermaid"], .mermaid`,
	}
}

// merge returns s with empty fields filled from the defaults, so a
// partially specified configuration still extracts.
func (s Selectors) merge() Selectors {
	def := DefaultSelectors()
	if s.Container == "" {
		s.Container = def.Container
	}
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.CodeBlock == "" {
		s.CodeBlock = def.CodeBlock
	}
	if s.HTMLMarker == "" {
		s.HTMLMarker = def.HTMLMarker
	}
	if s.ReactMarker == "" {
		s.ReactMarker = def.ReactMarker
	}
	if s.MermaidMarker == "" {
		s.MermaidMarker = def.MermaidMarker
	}
	return s
}
