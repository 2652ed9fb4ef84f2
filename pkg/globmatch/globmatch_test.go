// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package globmatch

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		path, pattern string
		want          bool
	}{
		{"vendor/lib.go", "vendor/**", true},
		{"vendor/nested/deep/lib.go", "vendor/**", true},
		{"apps/catalog/vendor/lib.go", "vendor/**", true},
		{"src/main.go", "vendor/**", false},
		{"node_modules/pkg/index.js", "node_modules/**", true},
		{".git/HEAD", ".git/**", true},
		{"pkg/extract/golang.go", "*.go", true},
		{"pkg/extract/golang.ts", "*.go", false},
		{"foo.ao", "foo.[!ab]o", false},
		{"foo.co", "foo.[!ab]o", true},
		{"foo.bo", "foo.[!ab]o", false},
		{"src/file.ts", "**/*.ts", true},
		{"file.ts", "**/*.ts", true},
		{"handlers.go", "Handle*", false},
		{"HandleGet", "Handle*", true},
	}
	for _, c := range cases {
		if got := Match(c.path, c.pattern); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.path, c.pattern, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("vendor/**"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate("foo.[!ab]o"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate("["); err == nil {
		t.Error("expected error for unterminated character class")
	}
}
