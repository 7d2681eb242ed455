package requests

import (
	"context"

	"github.com/google/uuid"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/database"
	"github.com/toolcrib/toolscan/pkg/service/state"
)

// ScanController runs scanner operations with the service's result and error
// handling attached.
type ScanController interface {
	Start() error
	Stop()
	Switch(id string) error
	Select(id string) error
	Refresh(ctx context.Context) error
}

type RequestEnv struct {
	Config   *config.UserConfig
	State    *state.State
	Database *database.Database
	Scans    ScanController
	Id       uuid.UUID
	Params   []byte
	IsLocal  bool
}
