package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"brawl-service/internal/app"
)

type WSHandler struct {
	service  *app.BrawlService
	tokens   app.TokenResolver
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BrawlService, tokens app.TokenResolver) *WSHandler {
	return &WSHandler{
		service: service,
		tokens:  tokens,
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

type selectPoolPayload struct {
	Code *string `json:"code"`
}

type submitAnswerPayload struct {
	MatchID string   `json:"matchId"`
	Answers []string `json:"answers"`
}

// wsClient adapts one websocket connection to app.Client. Send never
// blocks: when the buffer is full the oldest pending event is dropped, so
// a slow client cannot stall match or lobby broadcasts.
type wsClient struct {
	send chan app.Event
}

func (c *wsClient) Send(ev app.Event) {
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
}

// ServeWS upgrades HTTP requests to websockets, authenticates the session
// token and wires the connection into the duel engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	identity, err := h.tokens.Resolve(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		_ = conn.WriteJSON(app.Event{Type: app.EventAuthRequired})
		return
	}

	client := &wsClient{send: make(chan app.Event, 32)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range client.send {
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	h.service.Connect(client, identity)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select-pool":
			var payload selectPoolPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.Send(app.ErrorEvent("invalid select-pool payload"))
				continue
			}
			code := ""
			if payload.Code != nil {
				code = *payload.Code
			}
			if err := h.service.SelectPool(r.Context(), identity.UserID, code); err != nil {
				client.Send(app.ErrorEvent(err.Error()))
				continue
			}
			client.Send(app.Event{Type: app.EventSelectedSet, Payload: app.SelectedSetPayload{Code: code}})
		case "start-match":
			if err := h.service.Enqueue(r.Context(), identity.UserID); err != nil {
				client.Send(app.ErrorEvent(err.Error()))
			}
		case "cancel-match":
			h.service.Dequeue(identity.UserID)
		case "submit-answer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.Send(app.ErrorEvent("invalid submit-answer payload"))
				continue
			}
			if err := h.service.SubmitAnswer(identity.UserID, payload.MatchID, payload.Answers); err != nil {
				client.Send(app.ErrorEvent(err.Error()))
			}
		default:
			client.Send(app.ErrorEvent("unsupported message type"))
		}
	}

	h.service.Disconnect(client)
	close(client.send)
	<-writerDone
}
