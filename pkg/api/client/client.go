package client

import (
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/scanner"
)

var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrInvalidParams  = errors.New("invalid params")
)

func localUrl(cfg *config.UserConfig) url.URL {
	return url.URL{
		Scheme: "ws",
		Host:   "localhost:" + cfg.GetApiPort(),
		Path:   "/",
	}
}

// LocalClient sends a single method with params to the local running API
// service, waits for a response until timeout then disconnects.
func LocalClient(
	cfg *config.UserConfig,
	method string,
	params string,
) (string, error) {
	return call(localUrl(cfg), method, params, api.RequestTimeout)
}

func call(u url.URL, method string, params string, timeout time.Duration) (string, error) {
	id := uuid.New()

	req := models.RequestObject{
		JsonRpc: "2.0",
		Id:      &id,
		Method:  method,
	}

	if len(params) > 0 {
		if !json.Valid([]byte(params)) {
			return "", ErrInvalidParams
		}
		var ps any
		err := json.Unmarshal([]byte(params), &ps)
		if err != nil {
			return "", err
		}
		req.Params = ps
	}

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return "", err
	}
	defer func(c *websocket.Conn) {
		err := c.Close()
		if err != nil {
			log.Warn().Err(err).Msg("error closing websocket")
		}
	}(c)

	done := make(chan struct{})
	var resp *models.ResponseObject

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("error reading message")
				return
			}

			var m models.ResponseObject
			err = json.Unmarshal(message, &m)
			if err != nil {
				continue
			}

			// notifications share the socket, skip anything that isn't ours
			if m.JsonRpc != "2.0" || m.Id != id {
				continue
			}

			resp = &m
			return
		}
	}()

	err = c.WriteJSON(req)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		return "", ErrRequestTimeout
	}

	if resp == nil {
		return "", ErrRequestTimeout
	}

	if resp.Error != nil {
		return "", errors.New(resp.Error.Message)
	}

	b, err := json.Marshal(resp.Result)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// LocalScan starts the scanner on the local running API service and waits
// for the first result or hard error it reports, up to timeout.
func LocalScan(cfg *config.UserConfig, timeout time.Duration) (models.ScanResultResponse, error) {
	return scan(localUrl(cfg), timeout)
}

type message struct {
	JsonRpc string              `json:"jsonrpc"`
	Id      *uuid.UUID          `json:"id,omitempty"`
	Method  string              `json:"method,omitempty"`
	Params  json.RawMessage     `json:"params,omitempty"`
	Error   *models.ErrorObject `json:"error,omitempty"`
}

func scan(u url.URL, timeout time.Duration) (models.ScanResultResponse, error) {
	var result models.ScanResultResponse

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return result, err
	}
	defer func(c *websocket.Conn) {
		err := c.Close()
		if err != nil {
			log.Warn().Err(err).Msg("error closing websocket")
		}
	}(c)

	// subscribed before the start request so no result can slip past
	id := uuid.New()
	err = c.WriteJSON(models.RequestObject{
		JsonRpc: "2.0",
		Id:      &id,
		Method:  models.MethodScannerStart,
	})
	if err != nil {
		return result, err
	}

	err = c.SetReadDeadline(time.Now().Add(timeout))
	if err != nil {
		return result, err
	}

	for {
		var m message
		err := c.ReadJSON(&m)
		if err != nil {
			var ne interface{ Timeout() bool }
			if errors.As(err, &ne) && ne.Timeout() {
				return result, ErrRequestTimeout
			}
			return result, err
		}

		switch {
		case m.Id != nil && *m.Id == id:
			// a continuous scanner is already running, just wait for it
			if m.Error != nil && m.Error.Message != scanner.ErrAlreadyScanning.Error() {
				return result, errors.New(m.Error.Message)
			}
		case m.Id == nil && m.Method == models.ScannerResult:
			err := json.Unmarshal(m.Params, &result)
			return result, err
		case m.Id == nil && m.Method == models.ScannerError:
			var msg string
			err := json.Unmarshal(m.Params, &msg)
			if err != nil {
				return result, err
			}
			return result, errors.New(msg)
		}
	}
}
