package agent

import (
	"log"
	"os"
	"time"

	"github.com/cellsight/cellsight/tools"
)

const (
	// EnvMode is the environment variable name for capability selection.
	EnvMode = "CELLSIGHT_MODE"
	// ModeMock selects the deterministic mock capability.
	ModeMock = "MOCK"
	// ModeRemote selects the remote HTTP capability.
	ModeRemote = "REMOTE"
)

// New creates an agent capability based on the CELLSIGHT_MODE environment
// variable. Anything other than REMOTE falls back to the mock.
func New(registry *tools.Registry, agentURL string, timeout time.Duration) Capability {
	if os.Getenv(EnvMode) == ModeRemote && agentURL != "" {
		log.Printf("CELLSIGHT_MODE=REMOTE, using remote agent at %s", agentURL)
		return NewRemote(agentURL, timeout)
	}
	return NewMock(registry)
}
