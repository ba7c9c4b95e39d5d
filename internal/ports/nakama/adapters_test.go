package nakama

import (
	"context"
	"errors"
	"testing"
	"time"

	"kickoff/internal/domain"
	"kickoff/internal/ports"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

type storageKey struct {
	collection, key, userID string
}

// fakeStorage keeps storage objects in memory.
type fakeStorage struct {
	objects map[storageKey]*runtime.StorageWrite
	readErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[storageKey]*runtime.StorageWrite)}
}

func (f *fakeStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []*api.StorageObject
	for _, r := range reads {
		if w, ok := f.objects[storageKey{r.Collection, r.Key, r.UserID}]; ok {
			out = append(out, &api.StorageObject{Collection: w.Collection, Key: w.Key, UserId: w.UserID, Value: w.Value})
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		f.objects[storageKey{w.Collection, w.Key, w.UserID}] = w
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, UserId: w.UserID})
	}
	return acks, nil
}

func (f *fakeStorage) StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error {
	for _, d := range deletes {
		delete(f.objects, storageKey{d.Collection, d.Key, d.UserID})
	}
	return nil
}

func TestNakamaMatchStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	store := NewNakamaMatchStore(storage)

	if _, found, err := store.LoadCurrentMatch(ctx, "user-1"); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}

	match := ports.CurrentMatch{MatchID: "m-42", TeamName: "Harbour FC", OpponentName: "Ashford Town", StartedAt: time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)}
	if err := store.SaveCurrentMatch(ctx, "user-1", match); err != nil {
		t.Fatalf("SaveCurrentMatch: %v", err)
	}
	w := storage.objects[storageKey{StorageCollectionPlayback, StorageKeyCurrentMatch, "user-1"}]
	if w == nil || w.PermissionRead != 1 || w.PermissionWrite != 0 {
		t.Fatalf("write should be owner-readable and server-writable: %+v", w)
	}

	got, found, err := store.LoadCurrentMatch(ctx, "user-1")
	if err != nil || !found {
		t.Fatalf("LoadCurrentMatch: found=%v err=%v", found, err)
	}
	if got.MatchID != "m-42" || got.OpponentName != "Ashford Town" || !got.StartedAt.Equal(match.StartedAt) {
		t.Fatalf("loaded = %+v", got)
	}

	if err := store.ClearCurrentMatch(ctx, "user-1"); err != nil {
		t.Fatalf("ClearCurrentMatch: %v", err)
	}
	if _, found, _ := store.LoadCurrentMatch(ctx, "user-1"); found {
		t.Fatalf("match should be cleared")
	}
}

func TestNakamaMatchStoreReadError(t *testing.T) {
	storage := newFakeStorage()
	storage.readErr = errors.New("db down")
	if _, _, err := NewNakamaMatchStore(storage).LoadCurrentMatch(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected read error")
	}
}

// fakeAccounts serves a single account and records profile updates.
type fakeAccounts struct {
	account     *api.Account
	err         error
	metadata    map[string]interface{}
	displayName string
	username    string
}

func (f *fakeAccounts) AccountGetId(ctx context.Context, userID string) (*api.Account, error) {
	return f.account, f.err
}

func (f *fakeAccounts) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	f.username = username
	f.metadata = metadata
	f.displayName = displayName
	return f.err
}

func TestNakamaAccountAdapterGetPlayer(t *testing.T) {
	tests := []struct {
		name    string
		user    *api.User
		want    domain.PlayerProfile
		wantErr bool
	}{
		{
			name: "MetadataProfile",
			user: &api.User{Id: "user-1", Username: "u1", DisplayName: "SwiftOtter1234", Metadata: `{"player_type":"striker","stamina":80,"team_name":"Harbour FC"}`},
			want: domain.PlayerProfile{UserID: "user-1", Name: "SwiftOtter1234", PlayerType: "striker", Stamina: 80, TeamName: "Harbour FC"},
		},
		{
			name: "FallsBackToUsername",
			user: &api.User{Id: "user-1", Username: "u1"},
			want: domain.PlayerProfile{UserID: "user-1", Name: "u1"},
		},
		{
			name:    "BadMetadata",
			user:    &api.User{Id: "user-1", Metadata: `{oops`},
			wantErr: true,
		},
		{
			name:    "NoUser",
			wantErr: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			adapter := NewNakamaAccountAdapter(&fakeAccounts{account: &api.Account{User: test.user}})
			got, err := adapter.GetPlayer(context.Background(), "user-1")
			if test.wantErr {
				if err == nil {
					t.Fatalf("GetPlayer() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetPlayer() error = %v", err)
			}
			if got != test.want {
				t.Fatalf("GetPlayer() = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestNakamaAccountAdapterUpdateProfile(t *testing.T) {
	accounts := &fakeAccounts{}
	profile := domain.PlayerProfile{UserID: "user-1", Name: "CalmFox2000", PlayerType: "defender", Stamina: 100, TeamName: "Oakham Rovers"}

	if err := NewNakamaAccountAdapter(accounts).UpdateProfile(context.Background(), profile); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if accounts.displayName != "CalmFox2000" || accounts.username != "" {
		t.Fatalf("display name %q, username %q", accounts.displayName, accounts.username)
	}
	if accounts.metadata["player_type"] != "defender" || accounts.metadata["stamina"] != 100 || accounts.metadata["team_name"] != "Oakham Rovers" {
		t.Fatalf("metadata = %v", accounts.metadata)
	}
	if _, ok := accounts.metadata["opponent_name"]; ok {
		t.Fatalf("empty opponent name should not be written")
	}
}

// fakeMatches is a MatchList/MatchCreate double.
type fakeMatches struct {
	running   []*api.Match
	created   []map[string]interface{}
	lastQuery string
}

func (f *fakeMatches) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	f.lastQuery = query
	return f.running, nil
}

func (f *fakeMatches) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	f.created = append(f.created, params)
	return "nk-new", nil
}

func TestOpenPlayback(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesPlaybackForRequestedMatch", func(t *testing.T) {
		matches := &fakeMatches{}
		resp, err := openPlayback(ctx, noopLogger{}, matches, NewNakamaMatchStore(newFakeStorage()), "user-1", OpenPlaybackRequest{MatchID: "m-1"})
		if err != nil {
			t.Fatalf("openPlayback: %v", err)
		}
		if !resp.IsNew || resp.NakamaMatchID != "nk-new" || resp.MatchID != "m-1" || resp.Resumed {
			t.Fatalf("resp = %+v", resp)
		}
		if len(matches.created) != 1 || matches.created[0]["match_id"] != "m-1" || matches.created[0]["owner"] != "user-1" {
			t.Fatalf("created = %v", matches.created)
		}
		if matches.lastQuery != `+label.match_id:"m-1" +label.owner:"user-1"` {
			t.Fatalf("query = %s", matches.lastQuery)
		}
	})

	t.Run("JoinsRunningPlayback", func(t *testing.T) {
		matches := &fakeMatches{running: []*api.Match{{MatchId: "nk-running"}}}
		resp, err := openPlayback(ctx, noopLogger{}, matches, NewNakamaMatchStore(newFakeStorage()), "user-1", OpenPlaybackRequest{MatchID: "m-1"})
		if err != nil {
			t.Fatalf("openPlayback: %v", err)
		}
		if resp.IsNew || resp.NakamaMatchID != "nk-running" || len(matches.created) != 0 {
			t.Fatalf("resp = %+v, created = %v", resp, matches.created)
		}
	})

	t.Run("ResumesCurrentMatch", func(t *testing.T) {
		store := NewNakamaMatchStore(newFakeStorage())
		if err := store.SaveCurrentMatch(ctx, "user-1", ports.CurrentMatch{MatchID: "m-stored"}); err != nil {
			t.Fatalf("SaveCurrentMatch: %v", err)
		}
		resp, err := openPlayback(ctx, noopLogger{}, &fakeMatches{}, store, "user-1", OpenPlaybackRequest{})
		if err != nil {
			t.Fatalf("openPlayback: %v", err)
		}
		if !resp.Resumed || resp.MatchID != "m-stored" {
			t.Fatalf("resp = %+v", resp)
		}
	})

	t.Run("NothingToResume", func(t *testing.T) {
		_, err := openPlayback(ctx, noopLogger{}, &fakeMatches{}, NewNakamaMatchStore(newFakeStorage()), "user-1", OpenPlaybackRequest{})
		if err != errNoMatchToResume {
			t.Fatalf("err = %v, want errNoMatchToResume", err)
		}
	})
}

func TestCurrentMatch(t *testing.T) {
	ctx := context.Background()
	store := NewNakamaMatchStore(newFakeStorage())

	resp, err := currentMatch(ctx, store, "user-1")
	if err != nil || resp.Found || resp.Match != nil {
		t.Fatalf("empty: resp=%+v err=%v", resp, err)
	}

	if err := store.SaveCurrentMatch(ctx, "user-1", ports.CurrentMatch{MatchID: "m-3"}); err != nil {
		t.Fatalf("SaveCurrentMatch: %v", err)
	}
	resp, err = currentMatch(ctx, store, "user-1")
	if err != nil || !resp.Found || resp.Match.MatchID != "m-3" {
		t.Fatalf("stored: resp=%+v err=%v", resp, err)
	}
}

func TestTokenUserID(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-key"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return token
	}

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "Valid", token: sign(jwt.MapClaims{"uid": "user-9", "usn": "player"}), want: "user-9"},
		{name: "MissingUID", token: sign(jwt.MapClaims{"sub": "user-9"}), wantErr: true},
		{name: "EmptyUID", token: sign(jwt.MapClaims{"uid": ""}), wantErr: true},
		{name: "WrongShape", token: "abc", wantErr: true},
		{name: "BadBase64", token: "a.!!!.c", wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got, err := tokenUserID(test.token)
			if test.wantErr {
				if err == nil {
					t.Fatalf("tokenUserID() = %q, want error", got)
				}
				return
			}
			if err != nil || got != test.want {
				t.Fatalf("tokenUserID() = %q, %v; want %q", got, err, test.want)
			}
		})
	}
}

func TestSessionUserIDPrefersContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, "ctx-user")
	got, err := sessionUserID(ctx, &api.Session{Token: "not-a-token"})
	if err != nil || got != "ctx-user" {
		t.Fatalf("sessionUserID() = %q, %v; want ctx-user", got, err)
	}
}
