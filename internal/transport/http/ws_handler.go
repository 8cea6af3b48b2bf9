package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"exam-paper-service/internal/app"
	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/review"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	attempts *app.AttemptService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		logger:   logger.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	YearKey string      `json:"yearKey"`
	Mode    domain.Mode `json:"mode"`
	Confirm bool        `json:"confirm"`
}

type respondPayload struct {
	QuestionKey string              `json:"questionKey"`
	Type        domain.ResponseKind `json:"type"`
	Selected    string              `json:"selected"`
	Text        string              `json:"text"`
}

type markPayload struct {
	QuestionKey string          `json:"questionKey"`
	Marks       json.RawMessage `json:"marks"`
}

type confirmPayload struct {
	Confirm bool `json:"confirm"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type tickPayload struct {
	AttemptID        string `json:"attemptId"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

type reviewPayload struct {
	Attempt      *app.Attempt      `json:"attempt"`
	Scoreboard   review.Scoreboard `json:"scoreboard"`
	MissingMarks []string          `json:"missingMarks"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the attempt use cases.
// Every connection observes the same attempt slot.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := h.attempts.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				// keep draining so senders never block; closing unblocks the reader
				h.logger.Warn("ws write error", "error", err)
				failed = true
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				for _, msg := range eventMessages(ev) {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	ctx := r.Context()
	send <- h.stateMessage()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(ctx, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle runs one inbound command. Transitions are reported through the event stream, so
// only direct replies and errors are returned here.
func (h *WSHandler) handle(ctx context.Context, in inboundMessage) (outboundMessage[any], bool) {
	switch in.Type {
	case "start":
		var p startPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage("invalid start payload"), true
		}
		if _, err := h.attempts.Start(ctx, p.YearKey, p.Mode, confirmFlag(p.Confirm)); err != nil {
			return errorMessage(err.Error()), true
		}
	case "respond":
		var p respondPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage("invalid respond payload"), true
		}
		resp := domain.Response{Type: p.Type, Selected: p.Selected, Text: p.Text}
		if err := h.attempts.Respond(ctx, p.QuestionKey, resp); err != nil {
			return errorMessage(err.Error()), true
		}
	case "finish":
		if _, err := h.attempts.Finish(ctx, false); err != nil {
			return errorMessage(err.Error()), true
		}
	case "mark":
		var p markPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage("invalid mark payload"), true
		}
		sb, err := h.attempts.SetManualMark(ctx, p.QuestionKey, rawMark(p.Marks))
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "scoreboard", Payload: sb}, true
	case "finalize":
		var p confirmPayload
		_ = decodePayload(in.Payload, &p)
		if _, err := h.attempts.Finalize(ctx, confirmFlag(p.Confirm)); err != nil {
			return errorMessage(err.Error()), true
		}
	case "abandon":
		var p confirmPayload
		_ = decodePayload(in.Payload, &p)
		if err := h.attempts.Abandon(ctx, confirmFlag(p.Confirm)); err != nil {
			return errorMessage(err.Error()), true
		}
	case "state":
		return h.stateMessage(), true
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}

func (h *WSHandler) stateMessage() outboundMessage[any] {
	a, ok := h.attempts.Current()
	if !ok {
		return outboundMessage[any]{Type: "attempt", Payload: nil}
	}
	if a.Finished {
		return outboundMessage[any]{Type: "review", Payload: newReviewPayload(a)}
	}
	return outboundMessage[any]{Type: "attempt", Payload: a}
}

func eventMessages(ev app.Event) []outboundMessage[any] {
	switch ev.Type {
	case app.EventStarted:
		return []outboundMessage[any]{{Type: "attempt", Payload: ev.Attempt}}
	case app.EventTick:
		return []outboundMessage[any]{{Type: "tick", Payload: tickPayload{AttemptID: ev.AttemptID, RemainingSeconds: ev.RemainingSeconds}}}
	case app.EventFinished:
		return []outboundMessage[any]{
			{Type: "finished", Payload: ev.Attempt},
			{Type: "review", Payload: newReviewPayload(ev.Attempt)},
		}
	case app.EventAbandoned:
		return []outboundMessage[any]{{Type: "abandoned", Payload: tickPayload{AttemptID: ev.AttemptID, RemainingSeconds: ev.RemainingSeconds}}}
	case app.EventFinalized:
		return []outboundMessage[any]{{Type: "finalized", Payload: ev.History}}
	default:
		return nil
	}
}

func newReviewPayload(a *app.Attempt) reviewPayload {
	p := reviewPayload{Attempt: a, MissingMarks: []string{}}
	if a.Review != nil {
		p.Scoreboard = a.Review.Scoreboard()
		if missing := a.Review.MissingMarks(); missing != nil {
			p.MissingMarks = missing
		}
	}
	return p
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// rawMark accepts both "3" and 3 from clients.
func rawMark(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func confirmFlag(ok bool) app.Confirmer {
	if ok {
		return app.AlwaysConfirm
	}
	return app.NeverConfirm
}
