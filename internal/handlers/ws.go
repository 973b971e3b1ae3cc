// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/coordinator"
	"github.com/jason-s-yu/crystal-clear/internal/middleware"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "crystal"

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// WSHandler upgrades /ws requests and binds each connection to the
// coordinator: frames in are dispatched as requests, hub frames go out.
type WSHandler struct {
	coord *coordinator.Coordinator
	hub   *Hub
	log   *logrus.Logger

	ratePerSec float64
	burst      int
}

func NewWSHandler(coord *coordinator.Coordinator, hub *Hub, log *logrus.Logger, ratePerSec float64, burst int) *WSHandler {
	return &WSHandler{coord: coord, hub: hub, log: log, ratePerSec: ratePerSec, burst: burst}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.CloseNow()

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the crystal subprotocol")
		return
	}

	conn := newConn(uuid.NewString())
	remote := r.RemoteAddr
	h.hub.Register(conn)
	middleware.LogWebSocketConnect(h.log, conn.ID, remote)

	ctx, cancel := context.WithCancel(r.Context())
	go h.writePump(ctx, cancel, c, conn)
	err = h.readPump(ctx, c, conn)
	cancel()

	h.coord.Disconnect(conn.ID)
	h.hub.Remove(conn.ID)
	middleware.LogWebSocketDisconnect(h.log, conn.ID, remote, err)
}

// readPump reads request frames until the connection closes. It returns the
// error that ended it, nil for a normal close.
func (h *WSHandler) readPump(ctx context.Context, c *websocket.Conn, conn *Conn) error {
	limiter := rate.NewLimiter(rate.Limit(h.ratePerSec), h.burst)
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			h.sendError(conn, "Binary frames are not supported")
			continue
		}

		var req models.Request
		if err := json.Unmarshal(msg, &req); err != nil || req.Event == "" {
			h.sendError(conn, "Invalid JSON format")
			continue
		}
		if !limiter.Allow() {
			h.ack(conn, req.ID, nil, apperr.ErrRateLimited)
			continue
		}
		data, err := h.dispatch(conn.ID, req)
		h.ack(conn, req.ID, data, err)
	}
}

// writePump drains conn's queue to the socket and pings it periodically.
func (h *WSHandler) writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.done:
			c.Close(SlowConsumerError, "outbound queue overflow")
			return
		case raw := <-conn.OutChan:
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, raw)
			writeCancel()
			if err != nil {
				h.log.WithField("conn", conn.ID).Debugf("write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				h.log.WithField("conn", conn.ID).Debugf("ping failed: %v", err)
				return
			}
		}
	}
}

// ack answers request id. A nil err acks success with data's fields merged in.
func (h *WSHandler) ack(conn *Conn, id int64, data map[string]interface{}, err error) {
	body := map[string]interface{}{"success": err == nil}
	if err != nil {
		code := apperr.CodeOf(err)
		msg := err.Error()
		if code == apperr.CodeInternal {
			h.log.WithField("conn", conn.ID).WithError(err).Error("request failed")
			msg = apperr.New(apperr.CodeInternal).Message
		}
		body["error"] = msg
		body["code"] = code
	}
	for k, v := range data {
		body[k] = v
	}
	raw, ok := h.hub.encode(models.Envelope{Event: models.AckEvent, ID: id, Data: body})
	if ok {
		h.hub.deliver(conn, raw)
	}
}

func (h *WSHandler) sendError(conn *Conn, message string) {
	h.hub.SendTo(conn.ID, "error", map[string]string{"message": message})
}
