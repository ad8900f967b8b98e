package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"quiz-proctor/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler bridges a UI websocket to the session orchestrator. Every state
// change is pushed as a full snapshot; commands flow the other way.
type WSHandler struct {
	orch     *app.Orchestrator
	upgrader websocket.Upgrader
}

func NewWSHandler(orch *app.Orchestrator) *WSHandler {
	return &WSHandler{
		orch: orch,
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
	Password string `json:"password"`
}

type answerPayload struct {
	QuestionID int64 `json:"questionId"`
	OptionID   int64 `json:"optionId"`
}

type navPayload struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

type revealPayload struct {
	Password string `json:"password"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pumps snapshots until the UI disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.orch.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendError := func(message string) {
		select {
		case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}:
		case <-closeSignals:
		}
	}

	// Start and Submit call the backend and can block for seconds; they run
	// off the read loop so the UI stays responsive. pending keeps send open
	// until every in-flight command has finished.
	var pending sync.WaitGroup
	dispatch := func(fn func() error) {
		pending.Add(1)
		go func() {
			defer pending.Done()
			if err := fn(); err != nil {
				sendError(err.Error())
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "recheck":
			dispatch(func() error {
				h.orch.Recheck(r.Context())
				return nil
			})
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid start payload")
				continue
			}
			dispatch(func() error { return h.orch.Start(r.Context(), payload.Password) })
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid answer payload")
				continue
			}
			if err := h.orch.Answer(r.Context(), payload.QuestionID, payload.OptionID); err != nil {
				sendError(err.Error())
			}
		case "nav":
			var payload navPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid nav payload")
				continue
			}
			if err := h.orch.Navigate(app.NavAction(payload.Action), payload.Index); err != nil {
				sendError(err.Error())
			}
		case "submit":
			dispatch(func() error { return h.orch.Submit(r.Context()) })
		case "reveal":
			var payload revealPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid reveal payload")
				continue
			}
			if err := h.orch.ToggleReveal(payload.Password); err != nil {
				sendError(err.Error())
			}
		default:
			sendError("unsupported message type")
		}
	}

	close(closeSignals)
	pending.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}
