// Package models defines the domain types for the Memory Kernel.
package models

import "time"

// Document is a Markdown file under the docs root, read once per doctor run.
type Document struct {
	Path      string    `json:"path"` // relative to the docs root, forward slashes
	Content   string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Wikilink is one [[...]] occurrence inside a document.
type Wikilink struct {
	Source string `json:"source"`
	Raw    string `json:"raw"`    // trimmed inner text before any #fragment
	Target string `json:"target"` // Raw with root-alias prefixes removed
}

// BrokenLink is a wikilink whose target does not resolve to a document.
type BrokenLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// String formats the link the way the CLI reports it.
func (b BrokenLink) String() string {
	return b.Source + " -> [[" + b.Target + "]]"
}
