package app

import (
	"time"

	"kickoff/internal/catalog"
	"kickoff/internal/domain"
)

// startNextEventLocked shows the head of the minute queue and arms the pacing
// deadline. Goals get a reveal step before completing. An empty queue means the
// minute is fully displayed.
func (c *Coordinator) startNextEventLocked(now time.Time) {
	if len(c.queue) == 0 {
		c.displayMinute = c.minute
		c.minuteDoneLocked(now)
		return
	}
	e := c.queue[0]
	c.processed.Add(e.EventID)
	c.appendLocked(entryFor(e, catalog.EventText(e)))
	if e.IsGoal() {
		c.revealPending = true
		c.deadline = now.Add(c.timings.GoalRevealDelay)
		return
	}
	c.deadline = now.Add(c.timings.EventDelay)
}

// advanceProcessingLocked completes one pacing step of the head event.
func (c *Coordinator) advanceProcessingLocked(now time.Time) {
	if len(c.queue) == 0 {
		c.startNextEventLocked(now)
		return
	}
	if c.revealPending {
		c.revealPending = false
		c.celebrateLocked(now, c.queue[0], c.appendLocked)
		c.deadline = now.Add(c.timings.EventDelay)
		return
	}
	c.queue = c.queue[1:]
	c.startNextEventLocked(now)
}

// celebrateLocked writes the goal line through emit, credits the ledger and
// raises the goal flash.
func (c *Coordinator) celebrateLocked(now time.Time, e domain.TimelineEvent, emit func(...domain.DisplayedEvent)) {
	entry := entryFor(e, catalog.GoalText(e))
	entry.Goal = true
	emit(entry)
	c.ledger.Apply(e)
	c.goalFlashUntil = now.Add(c.timings.GoalFlash)
	score := c.ledger.Score()
	c.logger.Info("Goal: match %s minute %d event %d, score %d-%d", c.matchID, e.Minute, e.EventID, score.Mine, score.Opponent)
}

// renderImmediateLocked shows an event without pacing. Used for the events that
// share a minute with a halt.
func (c *Coordinator) renderImmediateLocked(now time.Time, e domain.TimelineEvent) {
	c.processed.Add(e.EventID)
	c.appendLocked(entryFor(e, catalog.EventText(e)))
	if e.IsGoal() {
		c.celebrateLocked(now, e, c.appendLocked)
	}
}

// captureLocked records an event of the decision minute into the capture
// buffer; the texts are replayed verbatim when the decision is acknowledged.
func (c *Coordinator) captureLocked(now time.Time, e domain.TimelineEvent) {
	c.processed.Add(e.EventID)
	c.captured = append(c.captured, entryFor(e, catalog.EventText(e)))
	if e.IsGoal() {
		c.celebrateLocked(now, e, func(entries ...domain.DisplayedEvent) {
			c.captured = append(c.captured, entries...)
		})
	}
}

func (c *Coordinator) flushCapturedLocked() {
	c.appendLocked(c.captured...)
	c.captured = nil
}
