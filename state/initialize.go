package state

import (
	"errors"
	"time"
)

var errNoConfig = errors.New("configuration is not loaded")

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}
