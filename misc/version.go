// Package misc keeps program identity set at build time.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set with -ldflags "-X epr/misc.version=... -X epr/misc.gitHash=...".
var (
	version = "dev"
	gitHash = "unknown"
	appName = "epr"
)

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}

// GetAppName returns program name, falls back to executable name when
// default is cleared.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
}
