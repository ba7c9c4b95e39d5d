package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"kickoff/internal/app/onboarding"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice gives a freshly created account its player profile.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if !out.Created {
		return nil
	}
	userID, err := sessionUserID(ctx, out)
	if err != nil {
		logger.Error("AfterAuthenticateDevice: %v", err)
		return err
	}

	result, err := onboarding.NewService(NewNakamaAccountAdapter(nk), nil).OnboardNewUser(ctx, userID)
	if err != nil {
		logger.Error("AfterAuthenticateDevice: onboarding failed for %s: %v", userID, err)
		return err
	}
	if result.ProfileUpdateErr != nil {
		// The player can still open a playback; the profile falls back to defaults.
		logger.Warn("AfterAuthenticateDevice: profile for %s not saved: %v", userID, result.ProfileUpdateErr)
		return nil
	}
	logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"player_type": result.Profile.PlayerType,
		"team":        result.Profile.TeamName,
	}).Info("AfterAuthenticateDevice: onboarded new player")
	return nil
}

// sessionUserID prefers the runtime context and falls back to the uid claim of
// the freshly issued session token. The token was signed by this server, so
// its signature is not checked again here.
func sessionUserID(ctx context.Context, session *api.Session) (string, error) {
	if id, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok && id != "" {
		return id, nil
	}
	return tokenUserID(session.Token)
}

func tokenUserID(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("session token has no uid claim")
	}
	return uid, nil
}
