package http

import (
	"bytes"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"busdelay/features"
	"busdelay/inference"
)

const (
	writeWait = 10 * time.Second
	// close frame reasons are capped by the protocol
	maxCloseReason = 123
)

// LiveMessageType tags outbound live session messages.
type LiveMessageType string

const (
	LivePrediction LiveMessageType = "prediction"
	LiveRejected   LiveMessageType = "rejected"
)

// LiveMessage is one answer on the live stop visit session.
type LiveMessage struct {
	Type       LiveMessageType       `json:"type"`
	Timestamp  time.Time             `json:"timestamp"`
	Record     *features.Record      `json:"record,omitempty"`
	Prediction *inference.Prediction `json:"prediction,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// handleStopLive answers every StopVisit message with a prediction, the way
// the stop visit page re-evaluates on every widget change. Bad input is
// answered and skipped; an inference failure ends the session.
func (h *Handler) handleStopLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.maxMessage)

	logger := h.logger.With(zap.String("request_id", GetRequestID(r.Context())))
	logger.Info("live session opened", zap.String("remote", r.RemoteAddr))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("live session read error", zap.Error(err))
			}
			return
		}

		visit := h.stopVisitDefaults()
		if err := decodeJSON(bytes.NewReader(data), &visit); err != nil {
			if !h.sendLive(conn, logger, LiveMessage{Type: LiveRejected, Error: err.Error()}) {
				return
			}
			continue
		}
		rec, err := h.checkStopVisit(visit)
		if err != nil {
			if !h.sendLive(conn, logger, LiveMessage{Type: LiveRejected, Error: err.Error()}) {
				return
			}
			continue
		}

		pred, err := h.stop.Predict(r.Context(), rec)
		if err != nil {
			logger.Error("live prediction failed", zap.Error(err))
			msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, closeReason(err.Error()))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
		if !h.sendLive(conn, logger, LiveMessage{Type: LivePrediction, Record: &rec, Prediction: &pred}) {
			return
		}
	}
}

// closeReason trims s to fit a close frame without splitting a rune.
func closeReason(s string) string {
	if len(s) <= maxCloseReason {
		return s
	}
	n := maxCloseReason
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (h *Handler) sendLive(conn *websocket.Conn, logger *zap.Logger, msg LiveMessage) bool {
	msg.Timestamp = time.Now()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		logger.Warn("live session write error", zap.Error(err))
		return false
	}
	return true
}
