package core

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// HistoryRow is one uplink as stored in the history table.
type HistoryRow struct {
	UUID       string
	AvgMW      float64
	Valor      float64
	ReceivedAt time.Time
}

// History appends accepted uplinks to a Postgres table so fleet telemetry
// survives registry rewrites.
type History struct {
	db    *sql.DB
	table string
}

// OpenHistory connects to Postgres and verifies the connection.
func OpenHistory(dsn string) (*History, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	return NewHistory(db, "uplinks"), nil
}

// NewHistory wraps an existing connection, mainly for tests.
func NewHistory(db *sql.DB, table string) *History {
	return &History{db: db, table: table}
}

// Record inserts rows in a single batched statement.
func (h *History) Record(rows []HistoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(h.table)
	b.WriteString(" (uuid, avg_mw, valor, received_at) VALUES ")

	args := make([]any, 0, len(rows)*4)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4))
		args = append(args, row.UUID, row.AvgMW, row.Valor, row.ReceivedAt)
	}

	_, err := h.db.Exec(b.String(), args...)
	return err
}

// Close releases the database connection.
func (h *History) Close() error { return h.db.Close() }
