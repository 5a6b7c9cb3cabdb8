//go:build !windows

package config

import "testing"

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"chapter1.xhtml", "chapter1.xhtml"},
		{"Text/chapter1.xhtml", "Text_chapter1.xhtml"},
		{"../secret", "secret"},
		{".hidden", "hidden"},
		{"a:b", "a_b"},
		{"", "_bad_file_name_"},
		{"///", "_bad_file_name_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
