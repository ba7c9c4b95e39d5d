package bot

// NewStrategy creates the strategy matching a player type. Unknown types get
// the neutral strategy.
func NewStrategy(playerType string) Brain {
	tuning, ok := DefaultTunings[playerType]
	if !ok {
		return &NeutralBot{}
	}
	return &TunedBot{Tuning: tuning}
}
