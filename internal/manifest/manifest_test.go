package manifest

import (
	"strings"
	"testing"
)

const sample = `
puzzles:
  - code: trailhead
    title: The Trailhead
    difficulty: 1
    points: 50
  - code: north-gate
    title: North Gate
    difficulty: 3
    points: 100
    requires: [trailhead]
  - code: vault
    title: The Vault
    difficulty: 8
    points: 500
    requires:
      - trailhead
      - north-gate
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Puzzles) != 3 {
		t.Fatalf("expected 3 puzzles, got %d", len(doc.Puzzles))
	}
	vault := doc.Puzzles[2]
	if vault.Code != "vault" || vault.Difficulty != 8 || len(vault.Requires) != 2 {
		t.Errorf("unexpected entry: %+v", vault)
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"empty code",
			"puzzles:\n  - code: \"\"\n    title: x\n",
			"code must not be empty",
		},
		{
			"duplicate code",
			"puzzles:\n  - code: a\n    title: x\n  - code: a\n    title: y\n",
			"duplicate code",
		},
		{
			"unknown requirement",
			"puzzles:\n  - code: a\n    title: x\n    requires: [ghost]\n",
			"unknown code",
		},
		{
			"self requirement",
			"puzzles:\n  - code: a\n    title: x\n    requires: [a]\n",
			"requires itself",
		},
		{
			"not yaml",
			"{{{",
			"parsing manifest",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again.Puzzles) != len(doc.Puzzles) {
		t.Errorf("round trip lost entries: %d != %d", len(again.Puzzles), len(doc.Puzzles))
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte(sample))
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a != Fingerprint([]byte(sample)) {
		t.Error("fingerprint must be deterministic")
	}
	if a == Fingerprint([]byte(sample+" ")) {
		t.Error("fingerprint must change with content")
	}
}
