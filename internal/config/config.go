package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// PlaybackConfig holds pacing and session settings for match playback.
type PlaybackConfig struct {
	TickPeriodMillis      int `json:"tick_period_ms"`
	EventDelayMillis      int `json:"event_delay_ms"`
	GoalRevealDelayMillis int `json:"goal_reveal_delay_ms"`
	GoalFlashMillis       int `json:"goal_flash_ms"`
	ResultDisplayMillis   int `json:"result_display_ms"`
	FinalMinute           int `json:"final_minute"`
	NeutralDecisionCode   int `json:"neutral_decision_code"`
	// AutoDecisionDelaySeconds is how long a pending prompt may wait with the owner absent before a bot resolves it.
	AutoDecisionDelaySeconds int `json:"auto_decision_delay_seconds"`
	MatchTickRate            int `json:"match_tick_rate"`
}

// Timings are the pacing durations derived from a PlaybackConfig.
type Timings struct {
	TickPeriod          time.Duration
	EventDelay          time.Duration
	GoalRevealDelay     time.Duration
	GoalFlash           time.Duration
	ResultDisplay       time.Duration
	FinalMinute         int
	NeutralDecisionCode int
}

var (
	cfg      *PlaybackConfig
	loadOnce sync.Once
	loadErr  error
)

// DefaultPlaybackConfig returns the settings used when no config file is loaded.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		TickPeriodMillis:         1000,
		EventDelayMillis:         1500,
		GoalRevealDelayMillis:    1200,
		GoalFlashMillis:          2000,
		ResultDisplayMillis:      2500,
		FinalMinute:              90,
		NeutralDecisionCode:      0,
		AutoDecisionDelaySeconds: 30,
		MatchTickRate:            10,
	}
}

// LoadPlaybackConfig loads the playback configuration from the given path.
// Missing fields keep their default values.
func LoadPlaybackConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read playback config: %w", err)
			return
		}

		c := DefaultPlaybackConfig()
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal playback config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetPlaybackConfig returns the loaded configuration, or the defaults if none was loaded.
func GetPlaybackConfig() PlaybackConfig {
	if cfg == nil {
		return DefaultPlaybackConfig()
	}
	return *cfg
}

// Timings converts the millisecond settings into durations.
func (c PlaybackConfig) Timings() Timings {
	finalMinute := c.FinalMinute
	if finalMinute <= 0 {
		finalMinute = 90
	}
	return Timings{
		TickPeriod:          millis(c.TickPeriodMillis, time.Second),
		EventDelay:          millis(c.EventDelayMillis, 1500*time.Millisecond),
		GoalRevealDelay:     millis(c.GoalRevealDelayMillis, 1200*time.Millisecond),
		GoalFlash:           millis(c.GoalFlashMillis, 2*time.Second),
		ResultDisplay:       millis(c.ResultDisplayMillis, 2500*time.Millisecond),
		FinalMinute:         finalMinute,
		NeutralDecisionCode: c.NeutralDecisionCode,
	}
}

func millis(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Millisecond
}

// ResolverSettings configures the HTTP match-resolution client.
type ResolverSettings struct {
	BaseURL        string
	Issuer         string
	Secret         string
	TimeoutSeconds int
}

// Environment keys shared by the Nakama runtime env map and the OS environment.
const (
	EnvResolverURL     = "kickoff_resolver_url"
	EnvResolverIssuer  = "kickoff_resolver_issuer"
	EnvResolverSecret  = "kickoff_resolver_secret"
	EnvResolverTimeout = "kickoff_resolver_timeout_sec"
)

// ResolverSettingsFromEnv reads resolver settings from an env map, such as
// the one Nakama exposes under runtime.RUNTIME_CTX_ENV.
func ResolverSettingsFromEnv(env map[string]string) ResolverSettings {
	s := ResolverSettings{
		BaseURL:        env[EnvResolverURL],
		Issuer:         env[EnvResolverIssuer],
		Secret:         env[EnvResolverSecret],
		TimeoutSeconds: 10,
	}
	if val, ok := env[EnvResolverTimeout]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			s.TimeoutSeconds = i
		}
	}
	if s.Issuer == "" {
		s.Issuer = "kickoff"
	}
	return s
}

// OSEnv collects the given keys from the process environment into a map.
func OSEnv(keys ...string) map[string]string {
	env := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env
}
