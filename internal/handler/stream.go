package handler

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campusrecords/internal/bus"
	"campusrecords/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Views only send control frames.
	maxMessageSize = 1024

	sendBuffer = 64
)

// TopicPage carries the page a view should render after an account or
// navigate event.
const TopicPage = "page"

// Frame is one message of the event stream.
type Frame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
	At      int64  `json:"at"`
}

type streamClient struct {
	conn *websocket.Conn
	nav  *session.Navigator
	send chan []byte
	done chan struct{}
	h    *Handler
}

// events upgrades to a websocket and streams bus events until the peer
// goes away. ?topics=a,b narrows the subscription.
func (h *Handler) events(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	acc, err := h.svc.Session.Current(c.Request.Context())
	if err != nil {
		h.log.Warn("event stream without account", "err", err)
	}
	cl := &streamClient{
		conn: conn,
		nav:  session.NewNavigator(h.bus, acc),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		h:    h,
	}

	topics := bus.Topics
	if q := c.Query("topics"); q != "" {
		topics = strings.Split(q, ",")
	}
	unsubs := make([]bus.Unsubscribe, 0, len(topics))
	for _, t := range topics {
		unsubs = append(unsubs, h.bus.Subscribe(strings.TrimSpace(t), cl.push))
	}
	h.log.Info("event stream opened", "topics", topics)

	cl.pushFrame(Frame{Topic: TopicPage, Payload: cl.nav.Page(), At: time.Now().UnixMilli()})
	go cl.writePump()
	cl.readPump()

	for _, u := range unsubs {
		u()
	}
	cl.nav.Close()
	close(cl.done)
	h.log.Info("event stream closed")
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 {
		return true
	}
	return slices.Contains(h.origins, "*") || slices.Contains(h.origins, origin)
}

func (cl *streamClient) push(ev bus.Event) {
	now := time.Now().UnixMilli()
	cl.pushFrame(Frame{Topic: ev.Topic, Payload: ev.Payload, At: now})
	if ev.Topic == bus.TopicAccount || ev.Topic == bus.TopicNavigate {
		cl.pushFrame(Frame{Topic: TopicPage, Payload: cl.nav.Page(), At: now})
	}
}

// pushFrame queues f without blocking the publisher. Frames are dropped
// when the peer cannot keep up.
func (cl *streamClient) pushFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		cl.h.log.Warn("encode frame failed", "topic", f.Topic, "err", err)
		return
	}
	select {
	case <-cl.done:
	case cl.send <- data:
	default:
		cl.h.log.Warn("event stream slow, frame dropped", "topic", f.Topic)
	}
}

func (cl *streamClient) readPump() {
	defer cl.conn.Close()
	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error { return cl.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (cl *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case <-cl.done:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
