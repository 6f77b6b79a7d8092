package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"giving-api/internal/models"
)

func TestBuildRowsOrdering(t *testing.T) {
	svc := NewExportService()
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	donations := []models.Donation{
		donationAt("d-b", "donor-1", 25, models.CategoryTithes, at),
		donationAt("d-a", "donor-2", 50, models.CategoryMissions, at),
		donationAt("d-c", "donor-3", 100, models.CategoryOfferings, at.AddDate(0, 0, 1)),
	}

	rows := svc.BuildRows(donations)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// Newest first; equal timestamps break on donation id
	if rows[0][0] != "d-c" || rows[1][0] != "d-a" || rows[2][0] != "d-b" {
		t.Fatalf("unexpected row order: %v %v %v", rows[0][0], rows[1][0], rows[2][0])
	}
	if rows[0][5] != "100.00" {
		t.Fatalf("amount should use two decimal places, got %q", rows[0][5])
	}
}

func TestWriteCSV(t *testing.T) {
	svc := NewExportService()
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	recurring := donationAt("d-1", "donor-1", 50, models.CategoryTithes, at)
	recurring.IsRecurring = true
	recurring.SubscriptionID = "sub-1"

	var buf bytes.Buffer
	if err := svc.WriteCSV(&buf, []models.Donation{recurring}); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv back: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}
	if len(records[0]) != len(exportHeader) {
		t.Fatalf("header has %d columns, want %d", len(records[0]), len(exportHeader))
	}

	row := records[1]
	if row[1] != at.Format(time.RFC3339) {
		t.Fatalf("timestamp column = %q", row[1])
	}
	if row[9] != "true" || row[10] != "sub-1" {
		t.Fatalf("recurring columns wrong: %v", row)
	}
}
