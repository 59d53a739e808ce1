// Package extract turns conversation export markup into artifact
// records.
//
// The extractor scans a parsed HTML document for artifact containers
// and classifies each one by a fixed signal priority: code block, SVG,
// explicit html/react/mermaid markers, and finally markdown as the
// catch-all. Selectors are configuration, not code: host page markup
// changes are absorbed by re-tuning Selectors, never by editing the
// classification logic.
//
// Extraction is pull-based and observer-agnostic; re-scanning on page
// changes is the job of the watch package.
package extract
