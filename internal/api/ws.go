package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/inbox"
	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/realtime"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second

	// wsSendBuffer bounds the per-session outbound queue. A client that
	// can't drain this many events is dropped rather than allowed to
	// stall the hub.
	wsSendBuffer = 64
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientCommand is what the browser sends over the socket.
type clientCommand struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Topic  string `json:"topic"`
}

// serverFrame is what the server pushes. History frames replay a
// conversation's messages on subscribe; event frames carry live deltas.
type serverFrame struct {
	Type     string          `json:"type"` // "subscribed" | "history" | "event" | "error"
	Topic    string          `json:"topic,omitempty"`
	Messages any             `json:"messages,omitempty"`
	Event    *realtime.Event `json:"event,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// WSHandler upgrades authenticated requests to websocket sessions and
// connects them to the event hub.
type WSHandler struct {
	hub         *realtime.Hub
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	logger      *zap.Logger
}

func NewWSHandler(
	hub *realtime.Hub,
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	logger *zap.Logger,
) *WSHandler {
	return &WSHandler{hub: hub, convRepo: convRepo, messageRepo: messageRepo, logger: logger}
}

// Serve handles GET /v1/ws. Browsers can't set an Authorization header on
// a websocket handshake, so the auth middleware also accepts ?token=.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := middleware.GetUserID(c)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &wsSession{
		handler: h,
		conn:    conn,
		userID:  userID,
		out:     make(chan serverFrame, wsSendBuffer),
		done:    make(chan struct{}),
		subs:    make(map[string]int64),
		threads: make(map[uuid.UUID]*wsThread),
	}

	go s.writePump()
	s.readLoop(c)
	s.teardown()
}

// wsSession is one live socket. The read loop owns subs; threads is
// shared between the read loop (subscribe replay) and Send (live
// deliveries) and is guarded by mu.
type wsSession struct {
	handler *WSHandler
	conn    *websocket.Conn
	userID  uuid.UUID

	out  chan serverFrame
	done chan struct{}

	closeOnce sync.Once

	subs map[string]int64 // topic -> hub registration id

	mu      sync.Mutex
	threads map[uuid.UUID]*wsThread // conversation id -> merge buffer
}

// wsThread pairs a conversation's merge buffer with its delivery state.
// Until the history frame has been pushed the buffer absorbs live events
// without forwarding them; they reach the client inside the snapshot.
type wsThread struct {
	buf  *inbox.Thread
	live bool
}

// Send queues an event for the client. Called by the hub from publish
// goroutines; never blocks. A full queue or closed session reports an
// error so the hub unregisters this session.
//
// Events for a conversation with a merge buffer are folded into it first:
// an insert already present is suppressed, read flips update the buffered
// copies, and nothing is forwarded until the history snapshot built from
// that buffer has gone out — so each message reaches the client exactly
// once, via the snapshot or a later event frame.
func (s *wsSession) Send(ev realtime.Event) error {
	s.mu.Lock()
	if thread, ok := s.threads[ev.ConversationID]; ok {
		switch ev.Kind {
		case realtime.KindInsert:
			if ev.Message != nil && !thread.buf.Merge(*ev.Message) {
				s.mu.Unlock()
				return nil
			}
		case realtime.KindUpdate:
			for _, msg := range thread.buf.Messages() {
				for _, id := range ev.MessageIDs {
					if msg.ID == id {
						msg.IsRead = true
						thread.buf.Merge(msg)
					}
				}
			}
		case realtime.KindDelete:
			for _, id := range ev.MessageIDs {
				thread.buf.Remove(id)
			}
		}
		if !thread.live {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	frame := serverFrame{Type: "event", Event: &ev}
	select {
	case <-s.done:
		return errors.New("session closed")
	case s.out <- frame:
		return nil
	default:
		return errors.New("session send queue full")
	}
}

func (s *wsSession) push(frame serverFrame) {
	select {
	case <-s.done:
	case s.out <- frame:
	default:
		// Slow consumer; the write pump will notice soon enough via pings.
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *wsSession) readLoop(c *gin.Context) {
	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var cmd clientCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.handler.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		switch cmd.Action {
		case "subscribe":
			s.subscribe(c, cmd.Topic)
		case "unsubscribe":
			s.unsubscribe(cmd.Topic)
		default:
			s.push(serverFrame{Type: "error", Error: "unknown action"})
		}
	}
}

// subscribe authorizes the topic, registers with the hub, and for
// conversation topics replays the message history so the client starts
// from a complete snapshot. History and live events are merged through
// the same per-conversation buffer, so an insert that raced the replay
// is delivered exactly once.
func (s *wsSession) subscribe(c *gin.Context, topic string) {
	if _, ok := s.subs[topic]; ok {
		s.push(serverFrame{Type: "subscribed", Topic: topic})
		return
	}

	switch {
	case strings.HasPrefix(topic, "user:"):
		id, err := uuid.Parse(strings.TrimPrefix(topic, "user:"))
		if err != nil || id != s.userID {
			s.push(serverFrame{Type: "error", Topic: topic, Error: "cannot subscribe to another user's feed"})
			return
		}
		s.subs[topic] = s.handler.hub.Register(topic, s)
		s.push(serverFrame{Type: "subscribed", Topic: topic})

	case strings.HasPrefix(topic, "conversation:"):
		convID, err := uuid.Parse(strings.TrimPrefix(topic, "conversation:"))
		if err != nil {
			s.push(serverFrame{Type: "error", Topic: topic, Error: "invalid conversation topic"})
			return
		}

		conversation, err := s.handler.convRepo.GetByID(c.Request.Context(), convID)
		if err != nil {
			s.handler.logger.Error("failed to load conversation for subscribe", zap.Error(err))
			s.push(serverFrame{Type: "error", Topic: topic, Error: "subscribe failed"})
			return
		}
		if conversation == nil || !conversation.Participant(s.userID) {
			s.push(serverFrame{Type: "error", Topic: topic, Error: "conversation not found"})
			return
		}

		// Install the merge buffer before registering: an insert that
		// lands during the history fetch is folded into the same buffer
		// the replay merges into, so the client sees it exactly once —
		// inside the snapshot, not as a racing event frame.
		thread := &wsThread{buf: inbox.NewThread(convID)}
		s.mu.Lock()
		s.threads[convID] = thread
		s.mu.Unlock()
		s.subs[topic] = s.handler.hub.Register(topic, s)

		history, err := s.handler.messageRepo.ListByConversation(c.Request.Context(), convID, time.Time{}, 0)
		if err != nil {
			// Without the replay the client would mistake a failed fetch
			// for an empty thread. Roll the subscription back entirely and
			// let the client retry.
			s.handler.logger.Error("failed to load message history", zap.Error(err))
			s.handler.hub.Unregister(topic, s.subs[topic])
			delete(s.subs, topic)
			s.mu.Lock()
			delete(s.threads, convID)
			s.mu.Unlock()
			s.push(serverFrame{Type: "error", Topic: topic, Error: "history unavailable"})
			return
		}
		// Snapshot and history push happen in one critical section: an
		// event racing in on Send blocks on mu, then either merges as a
		// duplicate (suppressed) or forwards behind the history frame.
		s.mu.Lock()
		thread.buf.MergeAll(history)
		snapshot := append([]models.Message(nil), thread.buf.Messages()...)
		s.push(serverFrame{Type: "subscribed", Topic: topic})
		s.push(serverFrame{Type: "history", Topic: topic, Messages: snapshot})
		thread.live = true
		s.mu.Unlock()

	default:
		s.push(serverFrame{Type: "error", Topic: topic, Error: "unknown topic"})
	}
}

func (s *wsSession) unsubscribe(topic string) {
	id, ok := s.subs[topic]
	if !ok {
		return
	}
	s.handler.hub.Unregister(topic, id)
	delete(s.subs, topic)

	if strings.HasPrefix(topic, "conversation:") {
		if convID, err := uuid.Parse(strings.TrimPrefix(topic, "conversation:")); err == nil {
			s.mu.Lock()
			delete(s.threads, convID)
			s.mu.Unlock()
		}
	}
}

func (s *wsSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// teardown unregisters every subscription and closes the socket. Runs
// after the read loop exits for any reason.
func (s *wsSession) teardown() {
	s.close()
	for topic, id := range s.subs {
		s.handler.hub.Unregister(topic, id)
	}
	s.conn.Close()
}
