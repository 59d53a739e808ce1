package naming

import (
	"strings"

	"github.com/koopa0/artivault/internal/artifact"
)

// fallbackExtension is used for unknown types and unmapped languages.
const fallbackExtension = "txt"

// languageExtensions maps lowercase language tags to file extensions
// for code artifacts.
var languageExtensions = map[string]string{
	"bash":       "sh",
	"c":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"csharp":     "cs",
	"css":        "css",
	"dart":       "dart",
	"go":         "go",
	"golang":     "go",
	"haskell":    "hs",
	"html":       "html",
	"java":       "java",
	"javascript": "js",
	"js":         "js",
	"json":       "json",
	"jsx":        "jsx",
	"kotlin":     "kt",
	"lua":        "lua",
	"perl":       "pl",
	"php":        "php",
	"python":     "py",
	"r":          "r",
	"ruby":       "rb",
	"rust":       "rs",
	"scala":      "scala",
	"sh":         "sh",
	"shell":      "sh",
	"sql":        "sql",
	"swift":      "swift",
	"toml":       "toml",
	"ts":         "ts",
	"tsx":        "tsx",
	"typescript": "ts",
	"xml":        "xml",
	"yaml":       "yml",
	"yml":        "yml",
}

// typeExtensions maps non-code artifact types to file extensions.
var typeExtensions = map[artifact.Type]string{
	artifact.TypeMarkdown: "md",
	artifact.TypeSVG:      "svg",
	artifact.TypeHTML:     "html",
	artifact.TypeMermaid:  "mmd",
	artifact.TypeReact:    "jsx",
	artifact.TypeUnknown:  fallbackExtension,
}

// Extension returns the file extension (without the dot) for an
// artifact. Code artifacts dispatch on language, case-insensitively;
// everything else uses the per-type table. Unmapped inputs fall back
// to "txt".
func Extension(a artifact.Artifact) string {
	if a.Type == artifact.TypeCode {
		if ext, ok := languageExtensions[strings.ToLower(a.Language)]; ok {
			return ext
		}
		return fallbackExtension
	}
	if ext, ok := typeExtensions[a.Type]; ok {
		return ext
	}
	return fallbackExtension
}
