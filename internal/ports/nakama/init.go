package nakama

import (
	"context"
	"database/sql"

	"kickoff/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// PlaybackConfigPath is where the runtime looks for pacing settings, relative to the Nakama data directory.
const PlaybackConfigPath = "data/playback_config.json"

// InitModule wires RPCs, hooks and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadPlaybackConfig(PlaybackConfigPath); err != nil {
		logger.Warn("InitModule: Could not load playback config, using defaults: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNamePlayback, NewMatch); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	logger.Info("Kickoff playback module loaded.")
	return nil
}
