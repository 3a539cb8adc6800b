package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSInbound struct {
	Type    string       `json:"type"`
	Message string       `json:"message,omitempty"`
	Images  []uploadFile `json:"images,omitempty"`
}

type chatWSOutbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleChatWS runs the document Q&A chat over a websocket. Replies stream
// chunk-by-chunk; a "done" frame carries the full accumulated reply.
func (h *Handler) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sess := h.session.Chat()
	if sess == nil {
		http.Error(w, "no active analysis to chat about", http.StatusConflict)
		return
	}

	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		log.Printf("chat ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Releases any sender blocked on writeCh once the pump stops.
		defer cancel()
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "pong"})
		case "send":
			msg := strings.TrimSpace(in.Message)
			if msg == "" && len(in.Images) == 0 {
				pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: "message is required"})
				continue
			}
			attachments, err := decodeAttachments(in.Images)
			if err != nil {
				pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: err.Error()})
				continue
			}
			reply, err := sess.SendStream(ctx, msg, attachments, func(chunk string) {
				pushChatWS(ctx, writeCh, chatWSOutbound{Type: "chunk", Text: chunk})
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					cancel()
					<-writerDone
					return
				}
				pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: err.Error()})
				continue
			}
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "done", Text: reply})
		default:
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: "unknown message type"})
		}
	}
}

// pushChatWS hands a frame to the write pump. It blocks rather than drop:
// streamed chunks must reach the client complete and in order, and a lost
// "done" frame would strand the client mid-reply. The write pump's deadline
// bounds how long a send can stall; once the pump stops, the connection
// context unblocks every pending sender.
func pushChatWS(ctx context.Context, ch chan<- chatWSOutbound, out chatWSOutbound) {
	select {
	case ch <- out:
	case <-ctx.Done():
	}
}
