package misc

import "testing"

func TestIdentity(t *testing.T) {
	if GetAppName() != "epr" {
		t.Errorf("GetAppName() = %q, want %q", GetAppName(), "epr")
	}
	if GetVersion() == "" {
		t.Error("GetVersion() returned empty string")
	}
	if GetGitHash() == "" {
		t.Error("GetGitHash() returned empty string")
	}
}
