package methods

import (
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/api/models/requests"
	"github.com/toolcrib/toolscan/pkg/config"
)

func HandleVersion(_ requests.RequestEnv) (any, error) {
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version: config.Version,
	}, nil
}
