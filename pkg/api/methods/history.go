package methods

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/api/models/requests"
)

func HandleHistory(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received history request")

	maxResults := 0
	if len(env.Params) > 0 {
		var params models.HistoryParams
		err := json.Unmarshal(env.Params, &params)
		if err != nil {
			return nil, ErrInvalidParams
		}
		if params.MaxResults != nil {
			maxResults = *params.MaxResults
		}
	}

	entries, err := env.Database.GetHistory(maxResults)
	if err != nil {
		log.Error().Err(err).Msgf("error getting history")
		return nil, errors.New("error getting history")
	}

	resp := models.HistoryResponse{
		Entries: make([]models.HistoryResponseEntry, len(entries)),
	}

	for i, e := range entries {
		resp.Entries[i] = models.HistoryResponseEntry{
			Id:       e.Id,
			Time:     e.Time,
			Device:   e.Device,
			Text:     e.Text,
			Accepted: e.Accepted,
		}
	}

	return resp, nil
}

func HandleHistoryClear(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received history clear request")

	if !env.IsLocal {
		return nil, errors.New("history can only be cleared locally")
	}

	err := env.Database.ClearHistory()
	if err != nil {
		log.Error().Err(err).Msgf("error clearing history")
		return nil, errors.New("error clearing history")
	}

	return nil, nil
}
