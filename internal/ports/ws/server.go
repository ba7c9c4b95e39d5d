package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"kickoff/internal/app"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	CommandDecision = "decision"
	CommandContinue = "continue"
	CommandEndMatch = "end_match"
	CommandSnapshot = "snapshot"

	MessageSession  = "session"
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// Command is a client request sent over the socket.
type Command struct {
	Type string `json:"type"`
	Code int    `json:"code,omitempty"`
}

// Message is a server push.
type Message struct {
	Type     string        `json:"type"`
	Session  string        `json:"session,omitempty"`
	Snapshot *app.Snapshot `json:"snapshot,omitempty"`
	Command  string        `json:"command,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// SessionFactory builds and loads the coordinator for one connection.
type SessionFactory func(ctx context.Context, matchID, userID string) (*app.Coordinator, error)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server hosts one playback session per websocket connection at /ws?match=&user=.
type Server struct {
	newSession   SessionFactory
	logger       runtime.Logger
	pingInterval time.Duration
}

// NewServer creates a websocket server that opens sessions through factory.
func NewServer(factory SessionFactory, logger runtime.Logger) *Server {
	return &Server{newSession: factory, logger: logger, pingInterval: 15 * time.Second}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match")
	userID := r.URL.Query().Get("user")
	if matchID == "" || userID == "" {
		http.Error(w, "match and user are required", http.StatusBadRequest)
		return
	}

	c, err := s.newSession(r.Context(), matchID, userID)
	if err != nil {
		s.logger.Warn("ServeHTTP: could not open match %s for %s: %v", matchID, userID, err)
		http.Error(w, "could not open match", http.StatusBadGateway)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		c.Teardown()
		s.logger.Warn("ServeHTTP: upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	logger := s.logger.WithFields(map[string]interface{}{"session": sessionID, "match": matchID, "user": userID})
	logger.Info("ServeHTTP: session opened")

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		app.Run(ctx, c)
		close(runDone)
	}()

	snapshots, unsubscribe := c.Subscribe(4)
	outbox := make(chan Message, 8)
	done := make(chan struct{})
	var commands sync.WaitGroup

	defer func() {
		cancel()
		conn.Close()
		<-done
		commands.Wait()
		<-runDone
		unsubscribe()
		logger.Info("ServeHTTP: session closed")
	}()

	if err := conn.WriteJSON(Message{Type: MessageSession, Session: sessionID}); err != nil {
		close(done)
		return
	}
	go s.readCommands(ctx, conn, c, logger, outbox, done, &commands)

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.WriteJSON(Message{Type: MessageSnapshot, Snapshot: &snap}); err != nil {
				return
			}
		case msg := <-outbox:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readCommands dispatches client commands until the connection drops.
// Submissions block on the resolver, so each command runs on its own goroutine.
func (s *Server) readCommands(ctx context.Context, conn *websocket.Conn, c *app.Coordinator, logger runtime.Logger, outbox chan<- Message, done chan struct{}, commands *sync.WaitGroup) {
	defer close(done)

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Debug("readCommands: %v", err)
			}
			return
		}

		commands.Add(1)
		go func(cmd Command) {
			defer commands.Done()
			reply, err := dispatch(ctx, c, cmd)
			if err != nil {
				logger.Debug("readCommands: %s rejected: %v", cmd.Type, err)
				reply = &Message{Type: MessageError, Command: cmd.Type, Error: err.Error()}
			}
			if reply == nil {
				return
			}
			select {
			case outbox <- *reply:
			case <-ctx.Done():
			}
		}(cmd)
	}
}

var errUnknownCommand = errors.New("unknown command")

// dispatch runs cmd against c. Only the snapshot request has a direct reply;
// state changes reach the client through the subscription.
func dispatch(ctx context.Context, c *app.Coordinator, cmd Command) (*Message, error) {
	switch cmd.Type {
	case CommandDecision:
		return nil, c.SubmitDecision(ctx, cmd.Code)
	case CommandContinue:
		return nil, c.Continue(ctx)
	case CommandEndMatch:
		return nil, c.EndMatch(ctx)
	case CommandSnapshot:
		snap := c.Snapshot()
		return &Message{Type: MessageSnapshot, Snapshot: &snap}, nil
	default:
		return nil, errUnknownCommand
	}
}
