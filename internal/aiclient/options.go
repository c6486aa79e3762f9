// internal/aiclient/options.go
package aiclient

import "google.golang.org/genai"

// ObserveOptions configures one observation call. Every field is optional;
// defaults are resolved inside Observe so call sites never juggle argument
// shapes.
type ObserveOptions struct {
	// Instruction is the natural-language description of what to find.
	// Empty means a generic whole-page observation.
	Instruction string
	// Scope restricts the DOM snapshot to the subtree matching this
	// selector. Empty means the whole document.
	Scope string
}

// ExtractOptions configures one extraction call. As with ObserveOptions,
// defaults are resolved at the call boundary.
type ExtractOptions struct {
	// Instruction describes the data to pull out of the page. Empty
	// defaults to extracting the page's text content.
	Instruction string
	// Scope restricts the snapshot to a DOM subtree. Empty means the whole
	// document.
	Scope string
	// Schema is the structural contract the backend's output must satisfy.
	// Nil defaults to the generic text-content schema.
	Schema *genai.Schema
	// Limit caps the number of records requested, when the instruction is
	// about a sequence. Zero means no explicit cap.
	Limit int
}
