package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/olegiv/sniper-tuner-go/internal/profile"
)

// Storage handles database operations
type Storage struct {
	db *sql.DB
}

// Session is one stored tuning run: the datalog that was analyzed, what the
// analysis found and what was recommended.
type Session struct {
	ID         int64
	Timestamp  time.Time
	VehicleID  string
	Source     string // datalog file the session was built from
	Decoder    string
	Confidence string
	Summary    string

	Recommendations []string
	Issues          []string
	Metrics         map[string]interface{}

	// Narration token usage, zero when narration was disabled.
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Database configuration constants
const (
	// busyTimeoutMs is how long SQLite waits when the database is locked
	busyTimeoutMs = 5000
	// maxOpenConns limits concurrent connections (SQLite works best with 1)
	maxOpenConns = 1
	// maxIdleConns is the number of idle connections to keep
	maxIdleConns = 1
	// connMaxLifetime is how long a connection can be reused
	connMaxLifetime = 30 * time.Minute
)

// New creates a new storage instance
func New(dbPath string) (*Storage, error) {
	// 0700: the database carries vehicle data and session history
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// The _busy_timeout pragma prevents "database is locked" errors by waiting
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", dbPath, busyTimeoutMs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Schema version constants
const (
	// currentSchemaVersion is the latest schema version
	// Increment this when adding new migrations
	currentSchemaVersion = 3
)

// initSchema creates the database schema if it doesn't exist
func (s *Storage) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	version := s.getSchemaVersion()

	if err := s.migrateSchema(version); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version (0 if not set)
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		return 0 // No version set, needs full migration
	}
	return version
}

// setSchemaVersion updates the schema version
func (s *Storage) setSchemaVersion(version int) error {
	if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return err
	}
	return nil
}

// migrateSchema runs migrations from currentVersion to latest
func (s *Storage) migrateSchema(currentVersion int) error {
	if currentVersion >= currentSchemaVersion {
		return nil // Already up to date
	}

	log.Printf("storage: migrating schema from version %d to %d", currentVersion, currentSchemaVersion)

	if currentVersion < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	if currentVersion < 2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}

	if currentVersion < 3 {
		if err := s.migrateV3(); err != nil {
			return fmt.Errorf("migration v3 failed: %w", err)
		}
	}

	if err := s.setSchemaVersion(currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	log.Printf("storage: schema migration completed successfully (now at version %d)", currentSchemaVersion)
	return nil
}

// migrateV1 creates the sessions table
func (s *Storage) migrateV1() error {
	log.Printf("storage: running migration v1 - create sessions table")

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		vehicle_id TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		decoder TEXT NOT NULL,
		confidence TEXT NOT NULL,
		summary TEXT NOT NULL,
		recommendations TEXT,
		issues TEXT,
		metrics TEXT,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		cost_usd REAL DEFAULT 0.0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_sessions_vehicle ON sessions(vehicle_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the vehicles and time_slips tables
func (s *Storage) migrateV2() error {
	log.Printf("storage: running migration v2 - add vehicles and time_slips tables")

	schema := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_slips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL,
		quarter_et REAL DEFAULT 0,
		quarter_mph REAL DEFAULT 0,
		ft_60 REAL DEFAULT 0,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slips_vehicle ON time_slips(vehicle_id);
	CREATE INDEX IF NOT EXISTS idx_slips_et ON time_slips(quarter_et);
	`

	_, err := s.db.Exec(schema)
	return err
}

// migrateV3 adds an eighth_et column so eighth-mile-only passes are
// retrievable. Existing rows are backfilled from the stored JSON.
func (s *Storage) migrateV3() error {
	log.Printf("storage: running migration v3 - add eighth_et to time_slips")

	schema := `
	ALTER TABLE time_slips ADD COLUMN eighth_et REAL DEFAULT 0;
	UPDATE time_slips SET eighth_et = COALESCE(json_extract(data, '$.eighth_et'), 0);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSession saves a tuning session to the database
func (s *Storage) SaveSession(session *Session) error {
	recommendationsJSON, err := json.Marshal(session.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	issuesJSON, err := json.Marshal(session.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	metricsJSON, err := json.Marshal(session.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO sessions (
			timestamp, vehicle_id, source, decoder, confidence, summary,
			recommendations, issues, metrics,
			input_tokens, output_tokens, cost_usd
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		session.Timestamp.Format(time.RFC3339),
		session.VehicleID,
		session.Source,
		session.Decoder,
		session.Confidence,
		session.Summary,
		string(recommendationsJSON),
		string(issuesJSON),
		string(metricsJSON),
		session.InputTokens,
		session.OutputTokens,
		session.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	session.ID = id
	return nil
}

// GetRecentSessions retrieves sessions from the last N days, optionally
// filtered by vehicle
func (s *Storage) GetRecentSessions(days int, vehicleID string) ([]*Session, error) {
	cutoffDate := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)

	query := `
		SELECT id, timestamp, vehicle_id, source, decoder, confidence, summary,
		       recommendations, issues, metrics,
		       input_tokens, output_tokens, cost_usd
		FROM sessions
		WHERE timestamp >= ?
	`
	args := []interface{}{cutoffDate}

	if vehicleID != "" {
		query += ` AND vehicle_id = ?`
		args = append(args, vehicleID)
	}

	query += ` ORDER BY timestamp DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func(rows *sql.Rows) {
		err = rows.Close()
		if err != nil {
			log.Printf("storage: failed to close database rows: %v", err)
		}
	}(rows)

	var sessions []*Session
	for rows.Next() {
		session, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// GetHistoricalContext retrieves recent sessions formatted for the narration
// prompt: what was found and recommended on previous passes.
func (s *Storage) GetHistoricalContext(days int, vehicleID string) (string, error) {
	sessions, err := s.GetRecentSessions(days, vehicleID)
	if err != nil {
		return "", err
	}

	if len(sessions) == 0 {
		return "", nil
	}

	var context string
	context += fmt.Sprintf("Previous %d tuning sessions:\n\n", len(sessions))

	for i, sess := range sessions {
		context += fmt.Sprintf("%d. %s - %s (confidence: %s)\n",
			i+1,
			sess.Timestamp.Format("2006-01-02 15:04"),
			sess.Source,
			sess.Confidence,
		)
		context += fmt.Sprintf("   Summary: %s\n", sess.Summary)
		if len(sess.Recommendations) > 0 {
			context += fmt.Sprintf("   Recommendations: %d\n", len(sess.Recommendations))
		}
		context += "\n"
	}

	return context, nil
}

// SaveVehicle upserts a vehicle profile keyed by its garage ID
func (s *Storage) SaveVehicle(id string, v *profile.VehicleProfile) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	query := `
		INSERT INTO vehicles (id, name, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, id, v.Name, string(data), time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}
	return nil
}

// GetVehicle loads a stored vehicle profile
func (s *Storage) GetVehicle(id string) (*profile.VehicleProfile, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM vehicles WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vehicle '%s' not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle: %w", err)
	}

	var v profile.VehicleProfile
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vehicle: %w", err)
	}
	return &v, nil
}

// SaveTimeSlip saves a pass for a vehicle
func (s *Storage) SaveTimeSlip(vehicleID string, ts *profile.TimeSlip) error {
	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("failed to marshal time slip: %w", err)
	}

	recordedAt := ts.Date
	if recordedAt == "" {
		recordedAt = time.Now().Format(time.RFC3339)
	}

	query := `
		INSERT INTO time_slips (vehicle_id, recorded_at, quarter_et, quarter_mph, ft_60, eighth_et, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, vehicleID, recordedAt, ts.QuarterET, ts.QuarterMPH, ts.Ft60, ts.EighthET, string(data)); err != nil {
		return fmt.Errorf("failed to insert time slip: %w", err)
	}
	return nil
}

// GetTimeSlips returns a vehicle's stored passes: complete quarter-mile
// passes quickest first, then eighth-mile-only passes quickest first.
func (s *Storage) GetTimeSlips(vehicleID string, limit int) ([]profile.TimeSlip, error) {
	query := `
		SELECT data FROM time_slips
		WHERE vehicle_id = ? AND (quarter_et > 0 OR eighth_et > 0)
		ORDER BY CASE WHEN quarter_et > 0 THEN 0 ELSE 1 END, quarter_et ASC, eighth_et ASC
		LIMIT ?
	`
	rows, err := s.db.Query(query, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query time slips: %w", err)
	}
	defer func(rows *sql.Rows) {
		err = rows.Close()
		if err != nil {
			log.Printf("storage: failed to close database rows: %v", err)
		}
	}(rows)

	var slips []profile.TimeSlip
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan time slip: %w", err)
		}
		var ts profile.TimeSlip
		if err := json.Unmarshal([]byte(data), &ts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal time slip: %w", err)
		}
		slips = append(slips, ts)
	}

	return slips, rows.Err()
}

// CleanupOldSessions deletes sessions older than N days
func (s *Storage) CleanupOldSessions(days int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)

	query := `DELETE FROM sessions WHERE timestamp < ?`
	result, err := s.db.Exec(query, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// GetStatistics returns database statistics, optionally filtered by vehicle
func (s *Storage) GetStatistics(vehicleID string) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	whereClause := ""
	var args []interface{}
	if vehicleID != "" {
		whereClause = " WHERE vehicle_id = ?"
		args = []interface{}{vehicleID}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM sessions` + whereClause
	err := s.db.QueryRow(countQuery, args...).Scan(&total)
	if err != nil {
		return nil, err
	}
	stats["total_sessions"] = total

	// Confidence distribution
	confQuery := `SELECT confidence, COUNT(*) FROM sessions` + whereClause + ` GROUP BY confidence`
	rows, err := s.db.Query(confQuery, args...)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		err = rows.Close()
		if err != nil {
			log.Printf("storage: failed to close database rows: %v", err)
		}
	}(rows)

	confDist := make(map[string]int)
	for rows.Next() {
		var confidence string
		var count int
		if err := rows.Scan(&confidence, &count); err != nil {
			return nil, err
		}
		confDist[confidence] = count
	}
	stats["confidence_distribution"] = confDist

	var totalCost float64
	costQuery := `SELECT COALESCE(SUM(cost_usd), 0) FROM sessions` + whereClause
	err = s.db.QueryRow(costQuery, args...).Scan(&totalCost)
	if err != nil {
		return nil, err
	}
	stats["total_cost_usd"] = totalCost

	return stats, nil
}

// scanSession scans a database row into a Session struct
func (s *Storage) scanSession(rows *sql.Rows) (*Session, error) {
	var (
		id                                     int64
		timestamp, vehicleID                   string
		source, decoder, confidence, summary   string
		recommendationsJSON, issuesJSON        string
		metricsJSON                            string
		inputTokens, outputTokens              int
		costUSD                                float64
	)

	err := rows.Scan(
		&id, &timestamp, &vehicleID, &source, &decoder, &confidence, &summary,
		&recommendationsJSON, &issuesJSON, &metricsJSON,
		&inputTokens, &outputTokens, &costUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	var recommendations, issues []string
	var metrics map[string]interface{}

	if err := json.Unmarshal([]byte(recommendationsJSON), &recommendations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(issuesJSON), &issues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	return &Session{
		ID:              id,
		Timestamp:       ts,
		VehicleID:       vehicleID,
		Source:          source,
		Decoder:         decoder,
		Confidence:      confidence,
		Summary:         summary,
		Recommendations: recommendations,
		Issues:          issues,
		Metrics:         metrics,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		CostUSD:         costUSD,
	}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
