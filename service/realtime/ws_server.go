package realtime

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"PSocial/logger"
	"PSocial/tools/errs"
	"PSocial/tools/ids"
	"PSocial/tools/safe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS is the whole connection lifecycle: upgrade, handshake auth,
// registration, read loop, teardown. Token verification happens before
// the connection touches any shared state, and never under a lock.
func (g *Gateway) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	userID, err := g.authenticate(c.Request)
	if err != nil {
		// fail closed: verifier errors and bad tokens reject alike,
		// the connection never enters the registry
		logger.Infof("[ws] handshake rejected: %v", err)
		deadline := time.Now().Add(g.opts.WriteTimeout)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, errs.ErrAuthentication.Msg),
			deadline)
		_ = ws.Close()
		return
	}

	client := NewClient(ids.GenerateString(), userID, ws, g.opts.SendQueueSize)
	g.admit(client)
	safe.SafeGo(func() { g.writePump(client) })
	g.readLoop(client)
	g.Teardown(client)
}

// authenticate pulls the bearer token from the query string or the
// Authorization header and resolves it to a user via the verifier.
func (g *Gateway) authenticate(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	if token == "" {
		return "", errs.ErrAuthentication.WithDetail("missing token").Wrap()
	}
	userID, err := g.verifier.VerifyUser(token)
	if err != nil {
		return "", errs.ErrAuthentication.WithDetail(err.Error()).Wrap()
	}
	return userID, nil
}

// readLoop 只读不写；出错即退出，由调用方收尾。
func (g *Gateway) readLoop(c *Client) {
	ws := c.WS
	_ = ws.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", c.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", c.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", c.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", c.ConnID, perr, sample)
			continue
		}

		if derr := g.disp.Dispatch(g, c, frame); derr != nil {
			logger.Infof("[ws] dispatch event=%s conn=%s err=%v", frame.Event, c.ConnID, derr)
		}
	}
}

// writePump is the single writer for this connection: drains the send
// queue, keeps the ping ticker, and on any write failure tears the
// connection down so a dead peer cannot hold on to room memberships.
func (g *Gateway) writePump(c *Client) {
	ticker := time.NewTicker(g.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(g.opts.WriteTimeout))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write failed conn=%s user=%s: %v (%v)",
					c.ConnID, c.UserID, err, errs.ErrDeliveryFail)
				g.Teardown(c)
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(g.opts.WriteTimeout))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.Teardown(c)
				return
			}
		}
	}
}
