package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/methods"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/api/models/requests"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/database"
	"github.com/toolcrib/toolscan/pkg/service/state"
	"golang.org/x/time/rate"
)

const RequestTimeout = 30 * time.Second

const (
	ErrCodeRequest   = 1
	ErrCodeRateLimit = 2
)

var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrMissingId     = errors.New("missing request id")
)

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	// scanner
	models.MethodScannerStatus:  methods.HandleStatus,
	models.MethodScannerCameras: methods.HandleCameras,
	models.MethodScannerStart:   methods.HandleStart,
	models.MethodScannerStop:    methods.HandleStop,
	models.MethodScannerSwitch:  methods.HandleSwitch,
	models.MethodScannerSelect:  methods.HandleSelect,
	// history
	models.MethodHistory:      methods.HandleHistory,
	models.MethodHistoryClear: methods.HandleHistoryClear,
	// utils
	models.MethodVersion: methods.HandleVersion,
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, error) {
	log.Debug().Interface("request", req).Msg("received request")

	fn, ok := methodMap[req.Method]
	if !ok {
		return nil, ErrUnknownMethod
	}

	if req.Id == nil {
		return nil, ErrMissingId
	}

	var params []byte
	if req.Params != nil {
		var err error
		// double unmarshal to use json decode on params later
		params, err = json.Marshal(req.Params)
		if err != nil {
			return nil, err
		}
	}

	env.Id = *req.Id
	env.Params = params

	return fn(env)
}

func sendResponse(s *melody.Session, id uuid.UUID, result any) error {
	log.Debug().Interface("result", result).Msg("sending response")

	data, err := json.Marshal(models.ResponseObject{
		JsonRpc: "2.0",
		Id:      id,
		Result:  result,
	})
	if err != nil {
		return err
	}

	return s.Write(data)
}

func sendError(s *melody.Session, id uuid.UUID, code int, message string) error {
	log.Debug().Int("code", code).Str("message", message).Msg("sending error")

	data, err := json.Marshal(models.ResponseObject{
		JsonRpc: "2.0",
		Id:      id,
		Error: &models.ErrorObject{
			Code:    code,
			Message: message,
		},
	})
	if err != nil {
		return err
	}

	return s.Write(data)
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type Server struct {
	cfg     *config.UserConfig
	st      *state.State
	db      *database.Database
	scans   requests.ScanController
	ns      <-chan models.Notification
	limiter *rate.Limiter
	m       *melody.Melody
	http    *http.Server
	done    chan struct{}
}

func NewServer(
	cfg *config.UserConfig,
	st *state.State,
	db *database.Database,
	scans requests.ScanController,
	ns <-chan models.Notification,
) *Server {
	limit, burst := cfg.GetRateLimit()
	rl := rate.Limit(limit)
	if limit <= 0 {
		rl = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	s := &Server{
		cfg:     cfg,
		st:      st,
		db:      db,
		scans:   scans,
		ns:      ns,
		limiter: rate.NewLimiter(rl, burst),
		m:       melody.New(),
		done:    make(chan struct{}),
	}

	s.m.Upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	s.m.HandleMessage(s.handleMessage)

	s.http = &http.Server{
		Addr:    ":" + cfg.GetApiPort(),
		Handler: s.Router(),
	}

	if ns != nil {
		go s.broadcast()
	}

	return s
}

// Router returns the HTTP handler: the websocket endpoint at / and a plain
// JSON status at /status.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		ExposedHeaders: []string{},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		err := s.m.HandleRequest(w, r)
		if err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, s.st.Status())
	})

	return r
}

func (s *Server) env(remoteAddr string) requests.RequestEnv {
	return requests.RequestEnv{
		Config:   s.cfg,
		State:    s.st,
		Database: s.db,
		Scans:    s.scans,
		IsLocal:  isLoopback(remoteAddr),
	}
}

func (s *Server) handleMessage(ms *melody.Session, msg []byte) {
	// ping command for heartbeat operation
	if bytes.Equal(msg, []byte("ping")) {
		err := ms.Write([]byte("pong"))
		if err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	if !json.Valid(msg) {
		log.Error().Msg("data not valid json")
		return
	}

	var req models.RequestObject
	err := json.Unmarshal(msg, &req)
	if err != nil || req.Method == "" {
		log.Error().Err(err).Msg("message does not match known types")
		return
	}

	if req.JsonRpc != "2.0" {
		log.Error().Str("jsonrpc", req.JsonRpc).Msg("unsupported payload version")
		return
	}

	if req.Id == nil {
		log.Info().Interface("req", req).Msg("received notification, ignoring")
		return
	}

	if !s.limiter.Allow() {
		log.Warn().Str("method", req.Method).Msg("rate limit exceeded")
		err := sendError(ms, *req.Id, ErrCodeRateLimit, "rate limit exceeded")
		if err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	resp, err := handleRequest(s.env(ms.Request.RemoteAddr), req)
	if err != nil {
		err := sendError(ms, *req.Id, ErrCodeRequest, err.Error())
		if err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	err = sendResponse(ms, *req.Id, resp)
	if err != nil {
		log.Error().Err(err).Msg("error sending response")
	}
}

// broadcast relays queued notifications to every connected client until the
// server is shut down.
func (s *Server) broadcast() {
	for {
		select {
		case <-s.done:
			return
		case n := <-s.ns:
			data, err := json.Marshal(models.RequestObject{
				JsonRpc: "2.0",
				Method:  n.Method,
				Params:  n.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}

			err = s.m.Broadcast(data)
			if err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// ListenAndServe blocks until the server stops. A clean shutdown returns
// nil.
func (s *Server) ListenAndServe() error {
	log.Info().Msgf("api listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)

	err := s.m.Close()
	if err != nil {
		log.Warn().Err(err).Msg("error closing websocket sessions")
	}

	return s.http.Shutdown(ctx)
}
