package core

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestHistoryRecord(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	history := NewHistory(db, "uplinks")
	ts := time.Unix(1700000000, 0).UTC()

	rows := []HistoryRow{
		{UUID: "QLX-A", AvgMW: 5000, Valor: 0.001, ReceivedAt: ts},
		{UUID: "QLX-B", AvgMW: 7000, Valor: 0.002, ReceivedAt: ts},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO uplinks (uuid, avg_mw, valor, received_at) VALUES ($1,$2,$3,$4),($5,$6,$7,$8)")
	mock.ExpectExec(expectedQuery).
		WithArgs("QLX-A", 5000.0, 0.001, ts, "QLX-B", 7000.0, 0.002, ts).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := history.Record(rows); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryRecord_NoRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	history := NewHistory(db, "uplinks")
	if err := history.Record(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
