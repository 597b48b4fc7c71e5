package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/frame-dx-server/internal/domain"
)

const (
	wsReadLimit    = 64 * 1024
	wsIdleTimeout  = 5 * time.Minute
	wsWriteTimeout = 10 * time.Second
)

// liveRequest is one message on the live diagnosis socket. The front-end
// sends the full symptom list every time the selection changes.
type liveRequest struct {
	Symptoms    []string `json:"symptoms"`
	Limit       int      `json:"limit,omitempty"`
	ExcludeZero bool     `json:"exclude_zero,omitempty"`
}

type liveError struct {
	Error *domain.APIError `json:"error"`
}

func newUpgrader(origins []string) *websocket.Upgrader {
	allowAll := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleDiagnoseWS re-ranks on every message so the UI can update as the
// user ticks symptoms.
func (s *Server) handleDiagnoseWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	reqID := requestID(c)
	ctx := c.Request.Context()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).WithField("request_id", reqID).Warn("WebSocket closed unexpectedly")
			}
			return
		}

		var reply interface{}
		var msg liveRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = liveError{Error: domain.NewAPIError(domain.ErrCodeInvalidRequest, "invalid request", err.Error(), reqID)}
		} else {
			opts := domain.DiagnoseOptions{Limit: msg.Limit, ExcludeZero: msg.ExcludeZero}
			outcome, err := s.deps.Diagnosis.Run(ctx, msg.Symptoms, opts, reqID)
			if err != nil {
				reply = liveError{Error: s.liveAPIError(err, reqID)}
			} else {
				reply = outcome.Result.Response()
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.WithError(err).WithField("request_id", reqID).Debug("WebSocket write failed")
			return
		}
	}
}

func (s *Server) liveAPIError(err error, reqID string) *domain.APIError {
	code := domain.ErrorCode(err)
	details := err.Error()
	if statusFor(code) >= http.StatusInternalServerError && !errors.Is(err, domain.ErrUnavailable) {
		s.logger.WithError(err).WithField("request_id", reqID).Error("Live diagnosis failed")
		details = ""
	}
	return domain.NewAPIError(code, messageFor(code), details, reqID)
}
