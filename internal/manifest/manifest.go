// Package manifest reads and writes the YAML puzzle-graph document used for
// bulk import and export.
//
// Document shape:
//
//	puzzles:
//	  - code: trailhead
//	    title: The Trailhead
//	    difficulty: 1
//	    points: 50
//	  - code: north-gate
//	    title: North Gate
//	    difficulty: 3
//	    points: 100
//	    requires: [trailhead]
package manifest

import (
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"
)

// Document is a full puzzle-graph definition.
type Document struct {
	Puzzles []Entry `yaml:"puzzles"`
}

// Entry is one puzzle plus the codes of its direct prerequisites.
type Entry struct {
	Code        string   `yaml:"code"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description,omitempty"`
	Difficulty  int      `yaml:"difficulty"`
	Points      int      `yaml:"points"`
	Inactive    bool     `yaml:"inactive,omitempty"`
	Requires    []string `yaml:"requires,omitempty"`
}

// Parse decodes and validates a manifest document. Codes must be unique and
// every requires entry must name a code defined in the same document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	seen := make(map[string]bool, len(doc.Puzzles))
	for i, entry := range doc.Puzzles {
		if entry.Code == "" {
			return nil, fmt.Errorf("manifest puzzle %d: code must not be empty", i)
		}
		if seen[entry.Code] {
			return nil, fmt.Errorf("manifest puzzle %q: duplicate code", entry.Code)
		}
		seen[entry.Code] = true
	}
	for _, entry := range doc.Puzzles {
		for _, req := range entry.Requires {
			if !seen[req] {
				return nil, fmt.Errorf("manifest puzzle %q: requires unknown code %q", entry.Code, req)
			}
			if req == entry.Code {
				return nil, fmt.Errorf("manifest puzzle %q: requires itself", entry.Code)
			}
		}
	}
	return &doc, nil
}

// Encode renders the document as YAML.
func (d *Document) Encode() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return out, nil
}

// Fingerprint returns the hex blake3 digest of a raw manifest, used to tie
// audit entries to the exact document that was imported.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
