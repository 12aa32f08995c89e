package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"truco/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// StorageAPI is the slice of runtime.NakamaModule the match store needs.
type StorageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

type storagePlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Team     int    `json:"team"`
	Seat     int    `json:"seat"`
}

type storageResult struct {
	WinningTeam int       `json:"winning_team"`
	WinnerScore int       `json:"winner_score"`
	LoserScore  int       `json:"loser_score"`
	Aborted     bool      `json:"aborted"`
	Reason      string    `json:"reason"`
	EndedAt     time.Time `json:"ended_at"`
}

type storageRecord struct {
	MatchID      string          `json:"match_id"`
	MatchCode    string          `json:"match_code"`
	LobbyID      string          `json:"lobby_id,omitempty"`
	Players      []storagePlayer `json:"players,omitempty"`
	WinningScore int             `json:"winning_score,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	Result       *storageResult  `json:"result,omitempty"`
}

// StorageMatchStore implements ports.MatchStore with system-owned Nakama
// storage objects keyed by match id.
type StorageMatchStore struct {
	nk StorageAPI
}

func NewStorageMatchStore(nk StorageAPI) *StorageMatchStore {
	return &StorageMatchStore{nk: nk}
}

func (s *StorageMatchStore) RecordMatchStart(ctx context.Context, start ports.MatchStart) (string, error) {
	rec := toStorageRecord(uuid.NewString(), start)
	if err := s.write(ctx, rec); err != nil {
		return "", err
	}
	return rec.MatchID, nil
}

// RecordMatchResult attaches the result to the start record. A result
// without a recorded start is stored under a fresh id.
func (s *StorageMatchStore) RecordMatchResult(ctx context.Context, result ports.MatchResult) error {
	rec := storageRecord{MatchID: result.MatchID, MatchCode: result.MatchCode}
	if rec.MatchID == "" {
		rec.MatchID = uuid.NewString()
	} else {
		existing, err := s.read(ctx, rec.MatchID)
		if err != nil {
			return err
		}
		if existing != nil {
			rec = *existing
		}
	}
	rec.Result = &storageResult{
		WinningTeam: result.WinningTeam,
		WinnerScore: result.WinnerScore,
		LoserScore:  result.LoserScore,
		Aborted:     result.Aborted,
		Reason:      result.Reason,
		EndedAt:     result.EndedAt.UTC(),
	}
	return s.write(ctx, rec)
}

func toStorageRecord(id string, start ports.MatchStart) storageRecord {
	startedAt := start.StartedAt.UTC()
	rec := storageRecord{
		MatchID:      id,
		MatchCode:    start.MatchCode,
		LobbyID:      start.LobbyID,
		WinningScore: start.WinningScore,
		StartedAt:    &startedAt,
	}
	for _, p := range start.Players {
		rec.Players = append(rec.Players, storagePlayer{PlayerID: p.PlayerID, Name: p.Name, Team: p.Team, Seat: p.Seat})
	}
	return rec
}

func (s *StorageMatchStore) read(ctx context.Context, id string) (*storageRecord, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{Collection: matchCollection, Key: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to read match %s: %w", id, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}
	var rec storageRecord
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode match %s: %w", id, err)
	}
	return &rec, nil
}

func (s *StorageMatchStore) write(ctx context.Context, rec storageRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal match record: %w", err)
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      matchCollection,
		Key:             rec.MatchID,
		Value:           string(value),
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return fmt.Errorf("failed to write match %s: %w", rec.MatchID, err)
	}
	return nil
}

var _ ports.MatchStore = (*StorageMatchStore)(nil)
