// File: internal/control/handlers.go
package control

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/api/schemas"
	"github.com/xkilldash9x/sitevoice/internal/agent"
	"github.com/xkilldash9x/sitevoice/internal/engine"
	"github.com/xkilldash9x/sitevoice/internal/speech"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is the envelope of every JSON reply.
type Response struct {
	Status string      `json:"status"` // "success" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// StatusReport describes the running session.
type StatusReport struct {
	SessionID   string                `json:"session_id"`
	Session     agent.SessionSnapshot `json:"session"`
	MemoryTurns int                   `json:"memory_turns"`
	NavState    agent.NavState        `json:"nav_state"`
	PTTStatus   string                `json:"ptt_status"`
}

// PTTReport is returned by the push-to-talk endpoints.
type PTTReport struct {
	Recording bool   `json:"recording"`
	Changed   bool   `json:"changed"`
	Status    string `json:"ptt_status"`
	Utterance string `json:"utterance,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondWithSuccess(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := StatusReport{
		SessionID:   s.assistant.ID(),
		Session:     s.assistant.Session().Snapshot(),
		MemoryTurns: s.assistant.Memory().Len(),
		NavState:    s.assistant.Navigator().State(),
	}
	if s.ptt != nil {
		report.PTTStatus = s.ptt.Status()
	}
	s.respondWithSuccess(w, http.StatusOK, report)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.ptt == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "Push-to-talk is not available.")
		return
	}
	changed := s.ptt.Start(s.captureCtx)
	s.respondWithSuccess(w, http.StatusOK, PTTReport{
		Recording: s.ptt.Recording(),
		Changed:   changed,
		Status:    s.ptt.Status(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.ptt == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "Push-to-talk is not available.")
		return
	}

	utterance, err := s.ptt.Stop(r.Context())
	switch {
	case err == nil:
		s.respondWithSuccess(w, http.StatusOK, PTTReport{Changed: true, Status: s.ptt.Status(), Utterance: utterance})
	case errors.Is(err, speech.ErrNotRecording):
		s.respondWithSuccess(w, http.StatusOK, PTTReport{Changed: false, Status: s.ptt.Status()})
	case errors.Is(err, schemas.ErrNotUnderstood), errors.Is(err, schemas.ErrNoSpeech):
		s.respondWithError(w, http.StatusUnprocessableEntity, s.ptt.Status())
	case errors.Is(err, engine.ErrQueueFull):
		s.respondWithError(w, http.StatusServiceUnavailable, "Still working on the previous request - try again shortly.")
	case errors.Is(err, engine.ErrQueueStopped):
		s.respondWithError(w, http.StatusGone, "The session has ended.")
	default:
		s.logger.Warn("Push-to-talk release failed.", zap.Error(err))
		s.respondWithError(w, http.StatusBadGateway, s.ptt.Status())
	}
}

// respondWithError sends a standardized JSON error response.
func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	s.respond(w, statusCode, Response{Status: "error", Error: message})
}

// respondWithSuccess sends a standardized JSON success response.
func (s *Server) respondWithSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	s.respond(w, statusCode, Response{Status: "success", Data: data})
}

func (s *Server) respond(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
