package common

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Theme
		wantErr bool
	}{
		{"light", ThemeLight, false},
		{"dark", ThemeDark, false},
		{"sepia", ThemeSepia, false},
		{"Sepia", ThemeLight, true},
		{"", ThemeLight, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTheme(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTheme) {
					t.Fatalf("ParseTheme(%q) error = %v, want ErrInvalidTheme", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTheme(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTheme(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTheme_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Theme Theme `json:"theme"`
	}{ThemeDark})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"theme":"dark"}` {
		t.Errorf("marshal = %s", data)
	}

	var v struct {
		Theme Theme `json:"theme"`
	}
	if err := json.Unmarshal([]byte(`{"theme":"neon"}`), &v); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestTextAlignNames(t *testing.T) {
	names := TextAlignNames()
	want := []string{"left", "right", "center", "justify"}
	if len(names) != len(want) {
		t.Fatalf("TextAlignNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("TextAlignNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if TextAlign(42).IsValid() {
		t.Error("TextAlign(42) should not be valid")
	}
}
