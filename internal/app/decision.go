package app

import (
	"context"
	"fmt"
	"time"

	"kickoff/internal/catalog"
	"kickoff/internal/domain"
	"kickoff/internal/ports"
)

// SubmitDecision sends the player's choice for the pending decision. The clock
// stays halted for the whole round trip. On success the returned slice is
// merged and either a chained decision is presented or the prompt waits for
// Continue. On failure the prompt reverts so the same decision can be retried.
func (c *Coordinator) SubmitDecision(ctx context.Context, code int) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.state != StateHaltedForDecision || c.pending == nil {
		c.mu.Unlock()
		return ErrNoPendingDecision
	}
	switch c.phase {
	case DecisionSubmitting:
		c.mu.Unlock()
		return ErrSubmissionInFlight
	case DecisionResolved:
		c.mu.Unlock()
		return ErrDecisionResolved
	}
	pending := *c.pending
	if !domain.ValidChoice(pending, code) {
		c.mu.Unlock()
		return fmt.Errorf("%w: code %d for %s", ErrInvalidChoice, code, pending.Action)
	}
	minute := c.minute
	epoch := c.epoch
	c.phase = DecisionSubmitting
	c.errMsg = ""
	c.publishLocked()
	c.mu.Unlock()

	slice, err := c.resolver.SubmitDecision(ctx, c.matchID, ports.Decision{EventID: pending.EventID, Minute: minute, Code: code})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return ErrTornDown
	}
	if !c.liveLocked(epoch, pending) {
		c.logger.Warn("SubmitDecision: match %s dropped result for event %d, playback was reloaded", c.matchID, pending.EventID)
		return ErrStaleSubmission
	}
	if err := c.acceptSliceLocked("decision", pending, minute, slice, err); err != nil {
		c.phase = DecisionChoosing
		c.errMsg = err.Error()
		c.logger.Warn("SubmitDecision: match %s event %d: %v", c.matchID, pending.EventID, err)
		c.publishLocked()
		return err
	}
	c.resolveDecisionLocked(c.now(), pending, slice.ResultText)
	c.publishLocked()
	return nil
}

// acceptSliceLocked classifies the collaborator answer and merges it when usable.
func (c *Coordinator) acceptSliceLocked(op string, pending domain.TimelineEvent, minute int, slice ports.TimelineSlice, err error) error {
	if err != nil {
		return &SubmissionError{Op: op, EventID: pending.EventID, Minute: minute, Err: err}
	}
	events, dropped := domain.DecodeEvents(slice.TimelineEvents)
	if dropped > 0 {
		c.dropped += dropped
		c.logger.Warn("Merge: dropped %d malformed events for match %s", dropped, c.matchID)
	}
	if len(events) == 0 {
		return ErrEmptyResult
	}
	c.mergeLocked(events)
	return nil
}

// resolveDecisionLocked applies a successful submission for pending. The
// highest-id unprocessed event of the decision minute decides whether the
// player must act again straight away.
func (c *Coordinator) resolveDecisionLocked(now time.Time, pending domain.TimelineEvent, resultText string) {
	c.processed.Add(pending.EventID)
	c.appendLocked(entryFor(pending, catalog.ParticipationText(pending)))
	c.resultText = resultText
	c.captured = nil

	rest := domain.DueEvents(c.timeline, c.minute, c.processed)
	if n := len(rest); n > 0 && rest[n-1].PlayerParticipates {
		next := rest[n-1]
		for _, e := range rest[:n-1] {
			if !e.IsContinuation() {
				c.captureLocked(now, e)
			}
		}
		c.flushCapturedLocked()

		c.pending = &next
		c.phase = DecisionChoosing
		c.chained = true
		c.resultUntil = now.Add(c.timings.ResultDisplay)
		prompt := entryFor(next, catalog.DecisionPrompt(next))
		prompt.Playable = true
		c.appendLocked(prompt)
		c.logger.Info("SubmitDecision: match %s chained decision on event %d at minute %d", c.matchID, next.EventID, c.minute)
		return
	}

	for _, e := range rest {
		if !e.IsContinuation() {
			c.captureLocked(now, e)
		}
	}
	c.phase = DecisionResolved
	c.chained = false
	c.resultUntil = time.Time{}
}

// Continue acknowledges a resolved decision, or advances past a half-time or
// full-time checkpoint by submitting the neutral decision code. The full-time
// checkpoint always ends the match, even when the submission fails.
// A checkpoint in the decision minute halts the clock again once the decision
// is acknowledged.
func (c *Coordinator) Continue(ctx context.Context) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}

	switch c.state {
	case StateHaltedForDecision:
		defer c.mu.Unlock()
		switch c.phase {
		case DecisionResolved:
			c.flushCapturedLocked()
			c.clearPromptLocked()
			now := c.now()
			due := domain.DueEvents(c.timeline, c.minute, c.processed)
			for i, e := range due {
				if e.IsContinuation() {
					c.haltForContinuationLocked(now, due, i)
					c.publishLocked()
					return nil
				}
			}
			c.resumeLocked(now, c.minute)
			c.publishLocked()
			return nil
		case DecisionSubmitting:
			return ErrSubmissionInFlight
		default:
			return ErrDecisionRequired
		}
	case StateHaltedForContinuation:
		if c.phase == DecisionSubmitting {
			c.mu.Unlock()
			return ErrSubmissionInFlight
		}
	default:
		c.mu.Unlock()
		return ErrNothingToContinue
	}

	checkpoint := *c.pending
	minute := c.minute
	epoch := c.epoch
	c.phase = DecisionSubmitting
	c.errMsg = ""
	c.publishLocked()
	c.mu.Unlock()

	slice, err := c.resolver.SubmitDecision(ctx, c.matchID, ports.Decision{EventID: checkpoint.EventID, Minute: minute, Code: c.timings.NeutralDecisionCode})

	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if !c.liveLocked(epoch, checkpoint) {
		c.mu.Unlock()
		c.logger.Warn("Continue: match %s dropped result for event %d, playback was reloaded", c.matchID, checkpoint.EventID)
		return ErrStaleSubmission
	}
	now := c.now()
	mergeErr := c.acceptSliceLocked("continuation", checkpoint, minute, slice, err)

	if checkpoint.EndsMatch() {
		if mergeErr != nil {
			c.logger.Warn("Continue: final whistle submission for match %s failed, finishing anyway: %v", c.matchID, mergeErr)
		}
		c.processed.Add(checkpoint.EventID)
		c.clearPromptLocked()
		c.displayMinute = minute
		c.finishLocked()
		c.terminal = true
		c.publishLocked()
		c.mu.Unlock()
		c.clearCurrentMatch(ctx)
		return nil
	}

	if mergeErr != nil {
		c.phase = DecisionChoosing
		c.errMsg = mergeErr.Error()
		c.logger.Warn("Continue: match %s event %d: %v", c.matchID, checkpoint.EventID, mergeErr)
		c.publishLocked()
		c.mu.Unlock()
		return mergeErr
	}

	c.processed.Add(checkpoint.EventID)
	if slice.ResultText != "" {
		c.captured = append(c.captured, domain.DisplayedEvent{Minute: minute, Text: slice.ResultText, Side: domain.SideNeutral})
	}
	// Events the backend added to the checkpoint minute are shown before the clock moves on.
	for _, e := range domain.DueEvents(c.timeline, minute, c.processed) {
		c.captureLocked(now, e)
	}
	c.flushCapturedLocked()
	c.clearPromptLocked()
	c.resumeLocked(now, minute)
	c.publishLocked()
	c.mu.Unlock()
	return nil
}

// EndMatch performs the terminal transition once the clock has run out.
// An unresolved full-time checkpoint is still reported to the backend; a
// failure there is logged and does not block the transition.
func (c *Coordinator) EndMatch(ctx context.Context) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.terminal {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateFinished {
		c.mu.Unlock()
		return ErrNotFinished
	}
	var final *domain.TimelineEvent
	for i := range c.timeline {
		e := c.timeline[i]
		if e.EndsMatch() && !c.processed.Has(e.EventID) {
			final = &e
			break
		}
	}
	epoch := c.epoch
	c.terminal = true
	c.publishLocked()
	c.mu.Unlock()

	if final != nil {
		decision := ports.Decision{EventID: final.EventID, Minute: final.Minute, Code: c.timings.NeutralDecisionCode}
		if _, err := c.resolver.SubmitDecision(ctx, c.matchID, decision); err != nil {
			c.logger.Warn("EndMatch: final whistle submission for match %s failed: %v", c.matchID, err)
		}
	}

	c.mu.Lock()
	reloaded := c.epoch != epoch
	c.mu.Unlock()
	if reloaded {
		// A newer playback owns the current-match record now.
		return ErrStaleSubmission
	}
	c.clearCurrentMatch(ctx)
	return nil
}

// liveLocked reports whether pending is still the prompt awaiting the
// submission started in epoch.
func (c *Coordinator) liveLocked(epoch uint64, pending domain.TimelineEvent) bool {
	return c.epoch == epoch && c.pending != nil && c.pending.EventID == pending.EventID && c.phase == DecisionSubmitting
}

func (c *Coordinator) clearPromptLocked() {
	c.pending = nil
	c.phase = ""
	c.captured = nil
	c.resultText = ""
	c.resultUntil = time.Time{}
	c.chained = false
	c.errMsg = ""
}

func (c *Coordinator) clearCurrentMatch(ctx context.Context) {
	if c.store == nil || c.userID == "" {
		return
	}
	if err := c.store.ClearCurrentMatch(ctx, c.userID); err != nil {
		c.logger.Warn("EndMatch: failed to clear current match for %s: %v", c.userID, err)
	}
}

// PendingEvent returns the event the clock is halted on.
func (c *Coordinator) PendingEvent() (domain.TimelineEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || !c.state.Halted() {
		return domain.TimelineEvent{}, false
	}
	return *c.pending, true
}
