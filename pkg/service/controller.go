package service

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/database"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/service/state"
)

// Controller runs scanner operations on behalf of API clients and records
// what they produce.
type Controller struct {
	st     *state.State
	db     *database.Database
	accept []glob.Glob
}

func NewController(
	st *state.State,
	db *database.Database,
	acceptPatterns []string,
) (*Controller, error) {
	var accept []glob.Glob
	for _, p := range acceptPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid accept pattern %q: %w", p, err)
		}
		accept = append(accept, g)
	}

	return &Controller{
		st:     st,
		db:     db,
		accept: accept,
	}, nil
}

// Accepts reports whether decoded text looks like one of ours. With no
// patterns configured everything is accepted.
func (c *Controller) Accepts(text string) bool {
	if len(c.accept) == 0 {
		return true
	}
	for _, g := range c.accept {
		if g.Match(text) {
			return true
		}
	}
	return false
}

func (c *Controller) onSuccess(res scanner.ScanResult) {
	accepted := c.Accepts(res.Text)
	log.Info().Str("device", res.Device).Bool("accepted", accepted).Msgf("scanned: %s", res.Text)

	if c.db != nil {
		_, err := c.db.AddHistory(database.HistoryEntry{
			Time:     res.ScanTime,
			Device:   res.Device,
			Text:     res.Text,
			Accepted: accepted,
		})
		if err != nil {
			log.Error().Err(err).Msg("error adding history")
		}
	}

	c.st.SetLastResult(models.ScanResultResponse{
		Text:     res.Text,
		Device:   res.Device,
		ScanTime: res.ScanTime,
		Accepted: accepted,
	})
}

func (c *Controller) onError(msg string) {
	log.Error().Msgf("scanner error: %s", msg)
	c.st.Notify(models.ScannerError, msg)
}

func (c *Controller) Start() error {
	return c.st.Scanner().Start(c.onSuccess, c.onError)
}

func (c *Controller) Stop() {
	c.st.Scanner().Stop()
}

func (c *Controller) Switch(id string) error {
	return c.st.Scanner().SwitchCamera(id, c.onSuccess, c.onError)
}

func (c *Controller) Select(id string) error {
	err := c.st.Scanner().Select(id)
	if err != nil {
		return err
	}
	c.st.Notify(models.ScannerCameras, c.st.Cameras())
	return nil
}

func (c *Controller) Refresh(ctx context.Context) error {
	err := c.st.Scanner().Refresh(ctx)
	c.st.Notify(models.ScannerCameras, c.st.Cameras())
	return err
}

// forwardChanges turns scanner state transitions into status notifications
// until done is closed.
func (c *Controller) forwardChanges(done <-chan struct{}) {
	changes := c.st.Scanner().Changes()
	for {
		select {
		case <-done:
			return
		case <-changes:
			c.st.Notify(models.ScannerState, c.st.Status())
		}
	}
}
