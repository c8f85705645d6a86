package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/axenix_signal/internal/hub"
	"github.com/immxrtalbeast/axenix_signal/internal/service"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
	"github.com/sourcegraph/conc"
)

// SignalController upgrades signaling connections and drives their pumps.
type SignalController struct {
	hub       *hub.Hub
	signaling service.SignalingHandler
	opts      hub.Options
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

func NewSignalController(h *hub.Hub, signaling service.SignalingHandler, opts hub.Options, log *slog.Logger) *SignalController {
	return &SignalController{
		hub:       h,
		signaling: signaling,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

func (c *SignalController) Connect(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Debug("websocket upgrade failed", sl.Err(err))
		return
	}

	client := hub.NewClient(conn, c.opts, c.log)
	c.hub.Register(client)
	c.signaling.Connect(client.ID())

	connCtx, cancel := context.WithCancel(context.Background())

	var wg conc.WaitGroup
	wg.Go(func() {
		client.WritePump(connCtx)
	})
	wg.Go(func() {
		defer cancel()
		client.ReadPump(connCtx, func(ctx context.Context, data []byte) {
			c.signaling.HandleMessage(ctx, client.ID(), data)
		})
	})
	wg.Wait()

	c.hub.Unregister(client.ID())
	c.signaling.Disconnect(client.ID())
}
