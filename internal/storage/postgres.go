package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xaenox/habit-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStore mirrors snapshots into Postgres. The in-memory store stays
// authoritative; Save upserts every entry by id and deletes rows that were
// pruned in memory, so repeated saves are idempotent.
type PostgresStore struct {
	db     *sql.DB
	loc    *time.Location
	logger *zap.Logger
}

func NewPostgresStore(config DatabaseConfig, loc *time.Location, logger *zap.Logger) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db, loc: loc, logger: logger}

	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Load() (models.Snapshot, error) {
	snap := models.Snapshot{
		Mindfulness: make(map[int64][]models.MindfulnessEntry),
		Fitness:     make(map[int64][]models.FitnessEntry),
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, recorded_at, note
		FROM mindfulness_entries
		ORDER BY user_id, recorded_at`)
	if err != nil {
		return snap, fmt.Errorf("error querying mindfulness entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry  models.MindfulnessEntry
			userID int64
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Time, &entry.Note); err != nil {
			return snap, fmt.Errorf("error scanning mindfulness entry: %w", err)
		}
		entry.Time = entry.Time.In(s.loc)
		snap.Mindfulness[userID] = append(snap.Mindfulness[userID], entry)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("error reading mindfulness entries: %w", err)
	}

	fitnessRows, err := s.db.Query(`
		SELECT id, user_id, started_at, note, duration_seconds, auto_finished
		FROM fitness_entries
		ORDER BY user_id, started_at`)
	if err != nil {
		return snap, fmt.Errorf("error querying fitness entries: %w", err)
	}
	defer fitnessRows.Close()

	for fitnessRows.Next() {
		var (
			entry   models.FitnessEntry
			userID  int64
			seconds sql.NullInt64
		)
		if err := fitnessRows.Scan(&entry.ID, &userID, &entry.StartTime, &entry.Note, &seconds, &entry.AutoFinished); err != nil {
			return snap, fmt.Errorf("error scanning fitness entry: %w", err)
		}
		entry.StartTime = entry.StartTime.In(s.loc)
		if seconds.Valid {
			d := time.Duration(seconds.Int64) * time.Second
			entry.Duration = &d
		}
		snap.Fitness[userID] = append(snap.Fitness[userID], entry)
	}
	if err := fitnessRows.Err(); err != nil {
		return snap, fmt.Errorf("error reading fitness entries: %w", err)
	}

	return snap, nil
}

func (s *PostgresStore) Save(snap models.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting save transaction: %w", err)
	}
	defer tx.Rollback()

	var mindfulIDs []string
	for userID, entries := range snap.Mindfulness {
		for _, e := range entries {
			id := e.ID
			if id == "" {
				id = uuid.New().String()
			}
			mindfulIDs = append(mindfulIDs, id)
			if _, err := tx.Exec(`
				INSERT INTO mindfulness_entries (id, user_id, recorded_at, note)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO NOTHING`,
				id, userID, e.Time, e.Note,
			); err != nil {
				return fmt.Errorf("error inserting mindfulness entry: %w", err)
			}
		}
	}

	var fitnessIDs []string
	for userID, entries := range snap.Fitness {
		for _, e := range entries {
			id := e.ID
			if id == "" {
				id = uuid.New().String()
			}
			fitnessIDs = append(fitnessIDs, id)
			var seconds sql.NullInt64
			if e.Duration != nil {
				seconds = sql.NullInt64{Int64: int64(e.Duration.Seconds()), Valid: true}
			}
			if _, err := tx.Exec(`
				INSERT INTO fitness_entries (id, user_id, started_at, note, duration_seconds, auto_finished)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO NOTHING`,
				id, userID, e.StartTime, e.Note, seconds, e.AutoFinished,
			); err != nil {
				return fmt.Errorf("error inserting fitness entry: %w", err)
			}
		}
	}

	// Entries pruned in memory must disappear here too.
	if _, err := tx.Exec(`DELETE FROM mindfulness_entries WHERE id <> ALL($1)`, pq.Array(mindfulIDs)); err != nil {
		return fmt.Errorf("error pruning mindfulness entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM fitness_entries WHERE id <> ALL($1)`, pq.Array(fitnessIDs)); err != nil {
		return fmt.Errorf("error pruning fitness entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing save transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
