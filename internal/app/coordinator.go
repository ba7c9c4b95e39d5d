package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kickoff/internal/config"
	"kickoff/internal/domain"
	"kickoff/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Options carries the optional collaborators of a Coordinator.
type Options struct {
	// UserID identifies the local player; required for store and profile lookups.
	UserID  string
	Store   ports.MatchStorePort
	Players ports.PlayerPort
	// Timings defaults to the loaded playback config when zero.
	Timings config.Timings
	// Now defaults to time.Now.
	Now func() time.Time
}

// Coordinator owns the playback state of one match: the timeline store, the
// minute clock, the event processor and the decision cycle. All mutable state
// is guarded by mu; the resolver is only ever called with mu released and the
// clock halted.
type Coordinator struct {
	mu sync.Mutex

	matchID  string
	userID   string
	resolver ports.MatchResolverPort
	store    ports.MatchStorePort
	players  ports.PlayerPort
	logger   runtime.Logger
	timings  config.Timings
	now      func() time.Time

	state         State
	timeline      []domain.TimelineEvent
	processed     domain.ProcessedSet
	minute        int
	displayMinute int
	ledger        domain.ScoreLedger
	log           []domain.DisplayedEvent

	// deadline is the single live timer: the next tick in Running, the next
	// pacing step in ProcessingMinute, zero otherwise.
	deadline      time.Time
	queue         []domain.TimelineEvent
	revealPending bool

	// epoch counts Loads; a submission whose epoch is gone is discarded.
	epoch       uint64
	pending     *domain.TimelineEvent
	phase       DecisionPhase
	captured    []domain.DisplayedEvent
	resultText  string
	resultUntil time.Time
	chained     bool

	goalFlashUntil time.Time
	errMsg         string
	terminal       bool
	tornDown       bool
	profile        *domain.PlayerProfile

	anomalies int
	dropped   int
	reported  map[[2]int64]struct{}

	version   uint64
	subs      map[int]chan Snapshot
	nextSubID int
	wake      chan struct{}
}

// NewCoordinator constructs an idle coordinator for matchID. Call Load to start playback.
func NewCoordinator(matchID string, resolver ports.MatchResolverPort, logger runtime.Logger, opts Options) *Coordinator {
	timings := opts.Timings
	if timings.TickPeriod <= 0 {
		timings = config.GetPlaybackConfig().Timings()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		matchID:   matchID,
		userID:    opts.UserID,
		resolver:  resolver,
		store:     opts.Store,
		players:   opts.Players,
		logger:    logger,
		timings:   timings,
		now:       now,
		state:     StateIdle,
		processed: domain.ProcessedSet{},
		reported:  make(map[[2]int64]struct{}),
		subs:      make(map[int]chan Snapshot),
		wake:      make(chan struct{}, 1),
	}
}

// MatchID returns the match this coordinator plays back.
func (c *Coordinator) MatchID() string {
	return c.matchID
}

// Load fetches the initial timeline and starts the clock from the kickoff.
// Any earlier playback state, including the visible log and the score, is discarded.
func (c *Coordinator) Load(ctx context.Context) error {
	raw, err := c.resolver.FetchInitialTimeline(ctx, c.matchID)
	if err != nil {
		return fmt.Errorf("fetch initial timeline for match %s: %w", c.matchID, err)
	}
	events, dropped := domain.DecodeEvents(raw)
	if dropped > 0 {
		c.logger.Warn("Load: dropped %d malformed events for match %s", dropped, c.matchID)
	}

	var profile *domain.PlayerProfile
	if c.players != nil && c.userID != "" {
		p, err := c.players.GetPlayer(ctx, c.userID)
		if err != nil {
			c.logger.Warn("Load: player profile unavailable for %s: %v", c.userID, err)
		} else {
			profile = &p
		}
	}

	now := c.now()
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	c.resetLocked()
	c.dropped = dropped
	c.profile = profile
	c.mergeLocked(events)
	c.state = StateRunning
	// The first tick lands on minute 0.
	c.minute = -1
	c.deadline = now.Add(c.timings.TickPeriod)
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("Load: match %s loaded with %d events", c.matchID, len(events))

	if c.store != nil && c.userID != "" {
		entry := ports.CurrentMatch{MatchID: c.matchID, StartedAt: now}
		if profile != nil {
			entry.TeamName = profile.TeamName
			entry.OpponentName = profile.OpponentName
		}
		if err := c.store.SaveCurrentMatch(ctx, c.userID, entry); err != nil {
			c.logger.Warn("Load: failed to record current match for %s: %v", c.userID, err)
		}
	}
	return nil
}

func (c *Coordinator) resetLocked() {
	c.epoch++
	c.timeline = nil
	c.processed = domain.ProcessedSet{}
	c.minute = 0
	c.displayMinute = 0
	c.ledger = domain.ScoreLedger{}
	c.log = nil
	c.deadline = time.Time{}
	c.queue = nil
	c.revealPending = false
	c.clearPromptLocked()
	c.goalFlashUntil = time.Time{}
	c.terminal = false
	c.anomalies = 0
	c.dropped = 0
	c.reported = make(map[[2]int64]struct{})
}

// mergeLocked folds events into the timeline store and flags ordering anomalies
// and events that arrive for a minute the clock already left behind.
func (c *Coordinator) mergeLocked(events []domain.TimelineEvent) {
	known := make(map[int64]struct{}, len(c.timeline))
	for _, e := range c.timeline {
		known[e.EventID] = struct{}{}
	}
	for _, e := range events {
		if _, ok := known[e.EventID]; ok {
			continue
		}
		if c.state != StateIdle && e.Minute < c.minute && !c.processed.Has(e.EventID) {
			c.anomalies++
			c.logger.Warn("Merge: event %d for minute %d arrived after the clock passed it (minute %d)", e.EventID, e.Minute, c.minute)
		}
	}

	c.timeline = domain.MergeTimeline(c.timeline, events)

	for _, a := range domain.CheckOrdering(c.timeline) {
		key := [2]int64{a.Previous.EventID, a.Current.EventID}
		if _, seen := c.reported[key]; seen {
			continue
		}
		c.reported[key] = struct{}{}
		c.anomalies++
		c.logger.Warn("Merge: %v", a)
	}
}

// NextDeadline returns the earliest moment Tick has work to do.
func (c *Coordinator) NextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var next time.Time
	for _, t := range []time.Time{c.deadline, c.goalFlashUntil, c.resultUntil} {
		if t.IsZero() {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next, !next.IsZero()
}

// Wake is signalled whenever the state changes, so a driver can re-read NextDeadline.
func (c *Coordinator) Wake() <-chan struct{} {
	return c.wake
}

// Teardown stops the clock, drops pending pacing work and closes all
// subscriptions. Later calls to any command are no-ops or return ErrTornDown.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.tornDown = true
	c.deadline = time.Time{}
	c.goalFlashUntil = time.Time{}
	c.resultUntil = time.Time{}
	c.queue = nil
	c.revealPending = false
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.logger.Debug("Teardown: playback of match %s stopped at minute %d", c.matchID, c.minute)
}

func (c *Coordinator) appendLocked(entries ...domain.DisplayedEvent) {
	c.log = append(c.log, entries...)
}

func entryFor(e domain.TimelineEvent, text string) domain.DisplayedEvent {
	return domain.DisplayedEvent{
		EventID: e.EventID,
		Minute:  e.Minute,
		Text:    text,
		Side:    domain.ClassifySide(e.Team),
	}
}
