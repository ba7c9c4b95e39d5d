// Command matchviewer serves match playback over websockets without a Nakama
// server. State lives in a local sqlite database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"kickoff/internal/app"
	"kickoff/internal/app/onboarding"
	"kickoff/internal/config"
	"kickoff/internal/logging"
	"kickoff/internal/ports/resolver"
	"kickoff/internal/ports/sqlite"
	"kickoff/internal/ports/ws"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(os.Getenv("KICKOFF_LOG_LEVEL")))

	configPath := getenv("KICKOFF_PLAYBACK_CONFIG", "data/playback_config.json")
	if err := config.LoadPlaybackConfig(configPath); err != nil {
		logger.Warn("Could not load playback config, using defaults: %v", err)
	}

	settings := config.ResolverSettingsFromEnv(config.OSEnv(
		config.EnvResolverURL,
		config.EnvResolverIssuer,
		config.EnvResolverSecret,
		config.EnvResolverTimeout,
	))
	if settings.BaseURL == "" {
		log.Fatalf("%s is required", config.EnvResolverURL)
	}

	store, err := sqlite.Open(getenv("KICKOFF_DB_PATH", "data/kickoff.db"))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(newSessionFactory(store, settings, logger), logger))
	mux.HandleFunc("/api/current", handleCurrent(store, logger))

	port := getenv("PORT", "8080")
	logger.Info("Match viewer listening on http://localhost:%s", port)
	log.Fatal(http.ListenAndServe(":"+port, mux))
}

// newSessionFactory builds one coordinator per websocket session. Unknown
// local users are onboarded with a default profile first.
func newSessionFactory(store *sqlite.Store, settings config.ResolverSettings, logger runtime.Logger) ws.SessionFactory {
	return func(ctx context.Context, matchID, userID string) (*app.Coordinator, error) {
		if _, err := store.GetPlayer(ctx, userID); errors.Is(err, sqlite.ErrPlayerNotFound) {
			result, err := onboarding.NewService(store, nil).OnboardNewUser(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("onboard %s: %w", userID, err)
			}
			if result.ProfileUpdateErr != nil {
				logger.Warn("Onboarding: failed to store profile for %s: %v", userID, result.ProfileUpdateErr)
			} else {
				logger.Info("Onboarding: %s plays as %s for %s", userID, result.Profile.PlayerType, result.Profile.TeamName)
			}
		}

		client, err := resolver.New(settings, userID, logger)
		if err != nil {
			return nil, err
		}
		c := app.NewCoordinator(matchID, client, logger.WithField("user", userID), app.Options{
			UserID:  userID,
			Store:   store,
			Players: store,
		})
		if err := c.Load(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func handleCurrent(store *sqlite.Store, logger runtime.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "user is required", http.StatusBadRequest)
			return
		}
		match, found, err := store.LoadCurrentMatch(r.Context(), userID)
		if err != nil {
			logger.Error("handleCurrent: %v", err)
			http.Error(w, "failed to read current match", http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{"found": found}
		if found {
			resp["match"] = match
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
