package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cagefight/fight"
	"cagefight/scheduler"
	"cagefight/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendBuffer   = 64
	historySize  = 50
	maxReadBytes = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MatchBroadcaster fans live match events out to websocket viewers
type MatchBroadcaster struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]bool // matchID -> viewers
	feeds   map[string]*matchFeed
}

func NewMatchBroadcaster(logger zerolog.Logger) *MatchBroadcaster {
	return &MatchBroadcaster{
		logger:  logger,
		clients: make(map[string]map[*client]bool),
		feeds:   make(map[string]*matchFeed),
	}
}

// Open is called by the live runner when a match starts
func (h *MatchBroadcaster) Open(matchID string, red, blue fight.Profile) scheduler.MatchFeed {
	f := &matchFeed{
		hub:         h,
		matchID:     matchID,
		commentator: fight.NewCommentator(red, blue, utils.MatchSeed(matchID)),
		redHP:       red.MaxHP(),
		blueHP:      blue.MaxHP(),
	}
	h.mu.Lock()
	h.feeds[matchID] = f
	h.mu.Unlock()
	return f
}

// HandleWebSocket streams /ws/match/{id}. Viewers may connect before the
// bell; they start receiving events once the match goes live.
func (h *MatchBroadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]
	log := zerolog.Ctx(r.Context()).With().Str("match_id", matchID).Logger()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	go c.writePump()

	h.mu.RLock()
	feed := h.feeds[matchID]
	h.mu.RUnlock()

	if feed != nil {
		feed.attach(c)
	} else {
		h.register(matchID, c)
		c.enqueue(mustMarshal(map[string]interface{}{"type": "state", "live": false}))
	}
	h.BroadcastViewerCount(matchID)
	log.Debug().Int("viewers", h.ViewerCount(matchID)).Msg("viewer connected")

	defer func() {
		h.unregister(matchID, c)
		c.close()
		h.BroadcastViewerCount(matchID)
		log.Debug().Msg("viewer disconnected")
	}()

	h.handleClientMessages(c, log)
}

// handleClientMessages keeps the connection alive; viewers only send pings
func (h *MatchBroadcaster) handleClientMessages(c *client, log zerolog.Logger) {
	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			c.enqueue(mustMarshal(map[string]string{"type": "pong"}))
		}
	}
}

func (h *MatchBroadcaster) register(matchID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[matchID] == nil {
		h.clients[matchID] = make(map[*client]bool)
	}
	h.clients[matchID][c] = true
}

func (h *MatchBroadcaster) unregister(matchID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[matchID], c)
	if len(h.clients[matchID]) == 0 {
		delete(h.clients, matchID)
	}
}

func (h *MatchBroadcaster) ViewerCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

// Live reports whether a feed is open for the match
func (h *MatchBroadcaster) Live(matchID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.feeds[matchID]
	return ok
}

// BroadcastAction sends one line of play-by-play to every viewer
func (h *MatchBroadcaster) BroadcastAction(matchID string, action fight.LiveAction) {
	h.broadcast(matchID, map[string]interface{}{
		"type":   "action",
		"action": action,
	})
}

func (h *MatchBroadcaster) BroadcastViewerCount(matchID string) {
	h.broadcast(matchID, map[string]interface{}{
		"type":         "viewer_count",
		"viewer_count": h.ViewerCount(matchID),
	})
}

func (h *MatchBroadcaster) broadcast(matchID string, payload interface{}) {
	message, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[matchID] {
		if !c.enqueue(message) {
			// a viewer that cannot keep up is dropped; the read loop unregisters it
			c.close()
		}
	}
}

func (h *MatchBroadcaster) closeFeed(matchID string) {
	h.mu.Lock()
	delete(h.feeds, matchID)
	h.mu.Unlock()
}

// client is one websocket viewer. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) enqueue(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// matchFeed turns one live match's events into play-by-play
type matchFeed struct {
	hub         *MatchBroadcaster
	matchID     string
	commentator *fight.Commentator

	mu       sync.Mutex
	redHP    int
	blueHP   int
	snapshot *fight.Snapshot
	history  []fight.LiveAction
	closed   bool
}

// attach registers a viewer and queues the catch-up state in one step, so
// nothing broadcast in between is lost or reordered
func (f *matchFeed) attach(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hub.register(f.matchID, c)
	c.enqueue(mustMarshal(map[string]interface{}{
		"type":     "state",
		"live":     !f.closed,
		"snapshot": f.snapshot,
		"history":  f.history,
	}))
}

func (f *matchFeed) push(action fight.LiveAction) {
	f.history = append(f.history, action)
	if len(f.history) > historySize {
		f.history = f.history[len(f.history)-historySize:]
	}
	f.hub.BroadcastAction(f.matchID, action)
}

// Damage and knockouts arrive again as exchanges, which carry the detail
func (f *matchFeed) OnDamage(string, int) {}
func (f *matchFeed) OnKnockout(string)    {}

func (f *matchFeed) OnExchange(ex fight.Exchange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redHP, f.blueHP = ex.RedHP, ex.BlueHP
	f.push(f.commentator.Exchange(ex))
}

func (f *matchFeed) OnRoundStart(round int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push(f.commentator.RoundStart(round, f.redHP, f.blueHP))
}

func (f *matchFeed) OnRoundEnd(round int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push(f.commentator.RoundEnd(round, f.redHP, f.blueHP))
}

func (f *matchFeed) OnFightEnd(res fight.MatchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redHP, f.blueHP = res.RedHP, res.BlueHP
	f.push(f.commentator.Result(res))
}

func (f *matchFeed) Snapshot(snap fight.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = &snap
	f.redHP, f.blueHP = snap.Red.HP, snap.Blue.HP
	f.hub.broadcast(f.matchID, map[string]interface{}{
		"type":     "snapshot",
		"snapshot": snap,
	})
}

func (f *matchFeed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.hub.closeFeed(f.matchID)
	f.hub.broadcast(f.matchID, map[string]interface{}{"type": "closed"})
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
