// Package storage keeps the query history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/woozymasta/mcstatus/assets"
	"github.com/woozymasta/mcstatus/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// DefaultHistoryLimit is used when GetHistory is called with a non-positive limit.
const DefaultHistoryLimit = 100

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New opens the database at dbPath, sets connection pool parameters, and runs the embedded migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dbPath, err)
	}

	if _, err := migrate(db, assets.FS(), "migrations"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// InsertRecord appends one history record and returns its ID.
func (r *Repository) InsertRecord(ctx context.Context, rec models.HistoryRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO history (
			address, kind, online, players, max_players, motd, version,
			remote_ip, country_code, latency_ms, error, checked_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Address, rec.Kind, rec.Online, rec.Players, rec.MaxPlayers, rec.MOTD, rec.Version,
		rec.RemoteIP, rec.CountryCode, rec.LatencyMS, rec.Error, rec.CheckedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// GetHistory returns the newest records first, filtered by address when it is not empty.
func (r *Repository) GetHistory(ctx context.Context, address string, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, address, kind, online, players, max_players, motd, version,
		       remote_ip, country_code, latency_ms, error, checked_at
		FROM history`
	var args []any
	if address != "" {
		query += ` WHERE address = ?`
		args = append(args, address)
	}
	query += ` ORDER BY checked_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []models.HistoryRecord{}
	for rows.Next() {
		var rec models.HistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.Address, &rec.Kind, &rec.Online, &rec.Players, &rec.MaxPlayers, &rec.MOTD, &rec.Version,
			&rec.RemoteIP, &rec.CountryCode, &rec.LatencyMS, &rec.Error, &rec.CheckedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// TrackedAddress is a distinct history address and the query kind recorded for it.
type TrackedAddress struct {
	Address string
	Kind    string
}

// GetAddresses returns every distinct (address, kind) pair present in the history.
func (r *Repository) GetAddresses(ctx context.Context) ([]TrackedAddress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT address, kind
		FROM history
		ORDER BY address, kind`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TrackedAddress
	for rows.Next() {
		var a TrackedAddress
		if err := rows.Scan(&a.Address, &a.Kind); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

// PruneBefore deletes records checked before t and returns how many were removed.
func (r *Repository) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE checked_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
