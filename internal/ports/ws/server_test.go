package ws

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kickoff/internal/app"
	"kickoff/internal/config"
	"kickoff/internal/domain"
	"kickoff/internal/logging"
	"kickoff/internal/ports"

	"github.com/gorilla/websocket"
)

type stubResolver struct {
	events []domain.RawEvent
}

func (s *stubResolver) FetchInitialTimeline(ctx context.Context, matchID string) ([]domain.RawEvent, error) {
	return s.events, nil
}

func (s *stubResolver) SubmitDecision(ctx context.Context, matchID string, d ports.Decision) (ports.TimelineSlice, error) {
	return ports.TimelineSlice{TimelineEvents: s.events, ResultText: "Nice ball."}, nil
}

var fastTimings = config.Timings{
	TickPeriod:      2 * time.Millisecond,
	EventDelay:      time.Millisecond,
	GoalRevealDelay: time.Millisecond,
	GoalFlash:       time.Millisecond,
	ResultDisplay:   time.Millisecond,
	FinalMinute:     90,
}

func newTestServer(t *testing.T, factoryErr error) *httptest.Server {
	t.Helper()
	decision := domain.EncodeEvent(domain.TimelineEvent{EventID: 1, Minute: 1, Action: domain.ActionOpenPlay, Team: domain.TeamMine, PlayerParticipates: true})
	resolver := &stubResolver{events: []domain.RawEvent{decision}}
	logger := logging.New(io.Discard, logging.LevelError)

	factory := func(ctx context.Context, matchID, userID string) (*app.Coordinator, error) {
		if factoryErr != nil {
			return nil, factoryErr
		}
		c := app.NewCoordinator(matchID, resolver, logger, app.Options{UserID: userID, Timings: fastTimings})
		if err := c.Load(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", NewServer(factory, logger))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, cond func(Message) bool) Message {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if cond(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write %s: %v", cmd.Type, err)
	}
}

func TestSessionPlaysDecisionCycle(t *testing.T) {
	srv := newTestServer(t, nil)
	conn := dial(t, srv, "match=m1&user=u1")

	first := readUntil(t, conn, func(Message) bool { return true })
	if first.Type != MessageSession || first.Session == "" {
		t.Fatalf("first message = %+v, want session id", first)
	}

	halted := readUntil(t, conn, func(m Message) bool {
		return m.Type == MessageSnapshot && m.Snapshot.Decision != nil
	})
	if halted.Snapshot.State != app.StateHaltedForDecision || halted.Snapshot.MatchID != "m1" {
		t.Fatalf("snapshot = %+v, want halted on m1", halted.Snapshot)
	}

	send(t, conn, Command{Type: CommandDecision, Code: 9})
	rejected := readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	if rejected.Command != CommandDecision || rejected.Error == "" {
		t.Fatalf("error message = %+v", rejected)
	}

	send(t, conn, Command{Type: CommandDecision, Code: 1})
	readUntil(t, conn, func(m Message) bool {
		return m.Type == MessageSnapshot && m.Snapshot.Decision != nil && m.Snapshot.Decision.Phase == app.DecisionResolved
	})

	send(t, conn, Command{Type: CommandContinue})
	readUntil(t, conn, func(m Message) bool {
		return m.Type == MessageSnapshot && m.Snapshot.Decision == nil && m.Snapshot.Minute >= 1
	})

	send(t, conn, Command{Type: CommandSnapshot})
	readUntil(t, conn, func(m Message) bool { return m.Type == MessageSnapshot })

	send(t, conn, Command{Type: "kick_ball"})
	unknown := readUntil(t, conn, func(m Message) bool { return m.Type == MessageError })
	if unknown.Error != errUnknownCommand.Error() {
		t.Fatalf("error = %q, want unknown command", unknown.Error)
	}
}

func TestMissingParamsAreRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/ws?match=m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFactoryFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, errors.New("resolver down"))
	resp, err := http.Get(srv.URL + "/ws?match=m1&user=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}
