package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/buildinfo"
	"github.com/w2w-movies/w2w/internal/httpjson"
)

const defaultRequestTimeout = 30 * time.Second

type healthResponse struct {
	Status   string            `json:"status"`
	Requests *app.LimiterStats `json:"requests,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.svc.Limiter != nil {
		st := s.svc.Limiter.Stats()
		resp.Requests = &st
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

// writeAppError traduit les erreurs applicatives en statut HTTP.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := app.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case code == app.CodeInvalidParams:
		status = http.StatusBadRequest
	case code == app.CodeNotFound:
		status = http.StatusNotFound
	case code == app.CodeHTTPStatus, code == app.CodeNetwork, code == app.CodeUpstream, code == app.CodeDecode:
		status = http.StatusBadGateway
	case errors.Is(err, app.ErrClosed), errors.Is(err, app.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("request failed")
	}
	httpjson.WriteCodedError(w, status, code, err.Error())
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &app.CodedError{Code: app.CodeInvalidParams, Message: key + " must be an integer"}
	}
	return n, nil
}

// queryWait lit ?wait=; par défaut la réponse attend la fin du chargement.
func queryWait(r *http.Request) bool {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return true
	}
	b, err := strconv.ParseBool(raw)
	return err != nil || b
}
