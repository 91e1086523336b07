package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/natefinch/atomic"
	"github.com/xaenox/habit-bot/internal/models"
	"go.uber.org/zap"
)

// timeLayout is the on-disk timestamp form: RFC 3339 with zone offset.
const timeLayout = time.RFC3339

// legacyTimeLayout matches snapshots written before zone offsets were
// recorded; such timestamps are interpreted in the reference zone.
const legacyTimeLayout = "2006-01-02T15:04:05"

// FileStore persists snapshots to a single JSON file. Writes go through a
// temp-file rename so a crash mid-save never corrupts the file.
type FileStore struct {
	path   string
	loc    *time.Location
	logger *zap.Logger
}

func NewFileStore(path string, loc *time.Location, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, loc: loc, logger: logger}
}

type mindfulnessRecord struct {
	ID   string `json:"id,omitempty"`
	Time string `json:"time"`
	Note string `json:"note"`
}

type fitnessRecord struct {
	ID              string `json:"id,omitempty"`
	Time            string `json:"time"`
	Note            string `json:"note"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
	AutoFinished    bool   `json:"auto_finished,omitempty"`
}

type snapshotFile struct {
	Mindfulness map[string][]mindfulnessRecord `json:"mindfulness"`
	Fitness     map[string][]fitnessRecord     `json:"fitness"`
}

// Load reads the snapshot file. A missing file yields an empty snapshot;
// individual malformed entries are logged and skipped rather than failing
// the whole load.
func (f *FileStore) Load() (models.Snapshot, error) {
	snap := models.Snapshot{
		Mindfulness: make(map[int64][]models.MindfulnessEntry),
		Fitness:     make(map[int64][]models.FitnessEntry),
	}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	if len(data) == 0 {
		return snap, nil
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return snap, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	for key, records := range file.Mindfulness {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			f.logger.Warn("Skipping snapshot user with bad id", zap.String("key", key))
			continue
		}
		for _, rec := range records {
			ts, err := f.parseTime(rec.Time)
			if err != nil {
				f.logger.Warn("Skipping mindfulness entry with bad timestamp",
					zap.Int64("user_id", userID),
					zap.String("time", rec.Time))
				continue
			}
			snap.Mindfulness[userID] = append(snap.Mindfulness[userID], models.MindfulnessEntry{
				ID:   rec.ID,
				Time: ts,
				Note: rec.Note,
			})
		}
	}

	for key, records := range file.Fitness {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			f.logger.Warn("Skipping snapshot user with bad id", zap.String("key", key))
			continue
		}
		for _, rec := range records {
			ts, err := f.parseTime(rec.Time)
			if err != nil {
				f.logger.Warn("Skipping fitness entry with bad timestamp",
					zap.Int64("user_id", userID),
					zap.String("time", rec.Time))
				continue
			}
			entry := models.FitnessEntry{
				ID:           rec.ID,
				StartTime:    ts,
				Note:         rec.Note,
				AutoFinished: rec.AutoFinished,
			}
			if rec.DurationSeconds != nil {
				d := time.Duration(*rec.DurationSeconds) * time.Second
				entry.Duration = &d
			}
			snap.Fitness[userID] = append(snap.Fitness[userID], entry)
		}
	}

	return snap, nil
}

// Save writes the snapshot atomically (temp file, then rename).
func (f *FileStore) Save(snap models.Snapshot) error {
	file := snapshotFile{
		Mindfulness: make(map[string][]mindfulnessRecord, len(snap.Mindfulness)),
		Fitness:     make(map[string][]fitnessRecord, len(snap.Fitness)),
	}

	for userID, entries := range snap.Mindfulness {
		records := make([]mindfulnessRecord, 0, len(entries))
		for _, e := range entries {
			records = append(records, mindfulnessRecord{
				ID:   e.ID,
				Time: e.Time.Format(timeLayout),
				Note: e.Note,
			})
		}
		file.Mindfulness[strconv.FormatInt(userID, 10)] = records
	}

	for userID, entries := range snap.Fitness {
		records := make([]fitnessRecord, 0, len(entries))
		for _, e := range entries {
			rec := fitnessRecord{
				ID:           e.ID,
				Time:         e.StartTime.Format(timeLayout),
				Note:         e.Note,
				AutoFinished: e.AutoFinished,
			}
			if e.Duration != nil {
				secs := int64(e.Duration.Seconds())
				rec.DurationSeconds = &secs
			}
			records = append(records, rec)
		}
		file.Fitness[strconv.FormatInt(userID, 10)] = records
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) parseTime(value string) (time.Time, error) {
	if ts, err := time.Parse(timeLayout, value); err == nil {
		return ts.In(f.loc), nil
	}
	// Legacy entries carry no zone; assume the reference zone.
	return time.ParseInLocation(legacyTimeLayout, value, f.loc)
}
