package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"kickoff/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// storageAPI is the subset of runtime.NakamaModule used for the current match record.
type storageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

// NakamaMatchStore implements ports.MatchStorePort on Nakama's storage engine.
// The record is owner-readable and server-writable.
type NakamaMatchStore struct {
	nk storageAPI
}

// NewNakamaMatchStore creates a new storage adapter.
func NewNakamaMatchStore(nk storageAPI) *NakamaMatchStore {
	return &NakamaMatchStore{nk: nk}
}

func (s *NakamaMatchStore) SaveCurrentMatch(ctx context.Context, userID string, match ports.CurrentMatch) error {
	value, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("marshal current match: %w", err)
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      StorageCollectionPlayback,
		Key:             StorageKeyCurrentMatch,
		UserID:          userID,
		Value:           string(value),
		PermissionRead:  1,
		PermissionWrite: 0,
	}})
	if err != nil {
		return fmt.Errorf("write current match: %w", err)
	}
	return nil
}

func (s *NakamaMatchStore) LoadCurrentMatch(ctx context.Context, userID string) (ports.CurrentMatch, bool, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: StorageCollectionPlayback,
		Key:        StorageKeyCurrentMatch,
		UserID:     userID,
	}})
	if err != nil {
		return ports.CurrentMatch{}, false, fmt.Errorf("read current match: %w", err)
	}
	if len(objects) == 0 || objects[0] == nil {
		return ports.CurrentMatch{}, false, nil
	}

	var match ports.CurrentMatch
	if err := json.Unmarshal([]byte(objects[0].Value), &match); err != nil {
		return ports.CurrentMatch{}, false, fmt.Errorf("decode current match: %w", err)
	}
	return match, match.MatchID != "", nil
}

func (s *NakamaMatchStore) ClearCurrentMatch(ctx context.Context, userID string) error {
	err := s.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: StorageCollectionPlayback,
		Key:        StorageKeyCurrentMatch,
		UserID:     userID,
	}})
	if err != nil {
		return fmt.Errorf("delete current match: %w", err)
	}
	return nil
}

var _ ports.MatchStorePort = (*NakamaMatchStore)(nil)
