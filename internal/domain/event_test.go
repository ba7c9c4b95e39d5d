package domain

import (
	"encoding/json"
	"testing"
)

func intPtr(v int) *int { return &v }
func idPtr(v int64) *int64 { return &v }

func TestDecodeEventsDropsMalformed(t *testing.T) {
	raw := []RawEvent{
		{EventID: idPtr(1), Minute: intPtr(5), Action: int(ActionPenalty), Team: int(TeamMine), PlayerParticipates: true},
		{EventID: nil, Minute: intPtr(6)},
		{EventID: idPtr(3), Minute: nil},
		{EventID: idPtr(4), Minute: intPtr(-1)},
		{EventID: idPtr(5), Minute: intPtr(0), Team: 42},
	}

	events, dropped := DecodeEvents(raw)
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
	if len(events) != 2 {
		t.Fatalf("decoded %d events, want 2", len(events))
	}
	if events[0].Action != ActionPenalty || !events[0].PlayerParticipates {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Team != TeamNeutral {
		t.Fatalf("unknown team code should map to neutral, got %v", events[1].Team)
	}
}

func TestDecodeEventsFromJSON(t *testing.T) {
	payload := `[{"eventId":7,"minute":45,"action":6,"team":2,"halfTime":true},{"minute":12,"action":0}]`
	var raw []RawEvent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	events, dropped := DecodeEvents(raw)
	if dropped != 1 || len(events) != 1 {
		t.Fatalf("events=%d dropped=%d", len(events), dropped)
	}
	if !events[0].IsContinuation() || events[0].EndsMatch() {
		t.Fatalf("half time event flags wrong: %+v", events[0])
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	e := TimelineEvent{EventID: 11, Minute: 30, Action: ActionFreeKick, Team: TeamOpponent, OpponentScored: true}
	decoded, dropped := DecodeEvents([]RawEvent{EncodeEvent(e)})
	if dropped != 0 || decoded[0] != e {
		t.Fatalf("decoded = %+v, want %+v", decoded, e)
	}
}

func TestActionString(t *testing.T) {
	if ActionPenalty.String() != "penalty" || Action(99).String() != "unknown" {
		t.Fatalf("unexpected action names")
	}
	if Action(99).Valid() {
		t.Fatalf("action 99 should be invalid")
	}
}
