package app

import (
	"time"

	"kickoff/internal/catalog"
	"kickoff/internal/domain"
)

// Tick drives the clock. Each call performs at most one step of due work:
// one minute advance while Running, or one pacing step while ProcessingMinute.
// Calls before the next deadline only expire transient display flags.
func (c *Coordinator) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}

	changed := c.expireLocked(now)
	if !c.deadline.IsZero() && !now.Before(c.deadline) {
		c.deadline = time.Time{}
		switch c.state {
		case StateRunning:
			c.advanceMinuteLocked(now)
		case StateProcessingMinute:
			c.advanceProcessingLocked(now)
		}
		changed = true
	}
	if changed {
		c.publishLocked()
	}
}

func (c *Coordinator) expireLocked(now time.Time) bool {
	changed := false
	if !c.goalFlashUntil.IsZero() && !now.Before(c.goalFlashUntil) {
		c.goalFlashUntil = time.Time{}
		changed = true
	}
	if !c.resultUntil.IsZero() && !now.Before(c.resultUntil) {
		c.resultUntil = time.Time{}
		c.resultText = ""
		changed = true
	}
	return changed
}

// advanceMinuteLocked moves the clock exactly one minute forward and decides
// how the events due at that minute are handled.
func (c *Coordinator) advanceMinuteLocked(now time.Time) {
	if c.minute >= c.timings.FinalMinute {
		c.finishLocked()
		return
	}
	c.minute++

	due := domain.DueEvents(c.timeline, c.minute, c.processed)
	if len(due) == 0 {
		c.displayMinute = c.minute
		c.minuteDoneLocked(now)
		return
	}

	for i, e := range due {
		if e.PlayerParticipates {
			c.haltForDecisionLocked(now, due, i)
			return
		}
	}
	for i, e := range due {
		if e.IsContinuation() {
			c.haltForContinuationLocked(now, due, i)
			return
		}
	}

	c.state = StateProcessingMinute
	c.queue = due
	c.startNextEventLocked(now)
}

// minuteDoneLocked returns the clock to Running once the current minute has
// been fully displayed, or stops it for good past the final minute.
func (c *Coordinator) minuteDoneLocked(now time.Time) {
	if c.minute >= c.timings.FinalMinute {
		c.finishLocked()
		return
	}
	c.state = StateRunning
	c.deadline = now.Add(c.timings.TickPeriod)
}

// haltForDecisionLocked stops the clock on due[idx], the earliest participating
// event of the minute. Earlier events of the minute are shown first; later ones
// wait for the decision. A checkpoint in the same minute is left for after it.
func (c *Coordinator) haltForDecisionLocked(now time.Time, due []domain.TimelineEvent, idx int) {
	for _, e := range due[:idx] {
		if e.IsContinuation() {
			continue
		}
		c.renderImmediateLocked(now, e)
	}
	d := due[idx]
	c.pending = &d
	c.phase = DecisionChoosing
	c.chained = false
	c.errMsg = ""
	c.state = StateHaltedForDecision
	c.displayMinute = c.minute
	c.deadline = time.Time{}

	entry := entryFor(d, catalog.DecisionPrompt(d))
	entry.Playable = true
	c.appendLocked(entry)
	c.logger.Info("Tick: match %s halted at minute %d for decision on event %d (%s)", c.matchID, c.minute, d.EventID, d.Action)
}

// haltForContinuationLocked stops the clock on a half-time or full-time checkpoint.
// The rest of the minute is shown around it in event id order.
func (c *Coordinator) haltForContinuationLocked(now time.Time, due []domain.TimelineEvent, idx int) {
	for i, e := range due {
		if i == idx {
			c.appendLocked(entryFor(e, catalog.ContinuationText(e)))
			continue
		}
		c.renderImmediateLocked(now, e)
	}
	k := due[idx]
	c.pending = &k
	c.phase = DecisionChoosing
	c.errMsg = ""
	c.state = StateHaltedForContinuation
	c.displayMinute = c.minute
	c.deadline = time.Time{}
	c.logger.Info("Tick: match %s halted at minute %d for continuation event %d", c.matchID, c.minute, k.EventID)
}

// resumeLocked restarts the clock from minute; the next tick lands on minute+1.
// The processed set is left as it is.
func (c *Coordinator) resumeLocked(now time.Time, minute int) {
	c.minute = minute
	c.displayMinute = minute
	c.queue = nil
	c.revealPending = false
	if minute >= c.timings.FinalMinute {
		c.finishLocked()
		return
	}
	c.state = StateRunning
	c.deadline = now.Add(c.timings.TickPeriod)
	c.logger.Debug("Resume: match %s resumes after minute %d", c.matchID, minute)
}

func (c *Coordinator) finishLocked() {
	c.state = StateFinished
	c.deadline = time.Time{}
	c.queue = nil
	c.revealPending = false
	c.logger.Info("Tick: match %s clock finished at minute %d", c.matchID, c.minute)
}
