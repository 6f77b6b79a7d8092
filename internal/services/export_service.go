package services

import (
	"encoding/csv"
	"io"
	"sort"
	"time"

	"giving-api/internal/models"
)

// ExportService flattens donation records into tabular form for
// spreadsheet-style export.
type ExportService struct{}

// NewExportService creates an export service
func NewExportService() *ExportService {
	return &ExportService{}
}

var exportHeader = []string{
	"donation_id", "donated_at", "donor_id", "donor_name", "category",
	"amount", "fee_amount", "net_amount", "currency", "is_recurring",
	"subscription_id", "purpose",
}

// BuildRows returns one row per donation, ordered by timestamp descending
// with ties broken by donation id for a stable layout.
func (s *ExportService) BuildRows(donations []models.Donation) [][]string {
	ordered := make([]models.Donation, len(donations))
	copy(ordered, donations)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].DonatedAt.Equal(ordered[j].DonatedAt) {
			return ordered[i].DonatedAt.After(ordered[j].DonatedAt)
		}
		return ordered[i].DonationID < ordered[j].DonationID
	})

	rows := make([][]string, 0, len(ordered))
	for _, donation := range ordered {
		recurring := "false"
		if donation.IsRecurring {
			recurring = "true"
		}
		rows = append(rows, []string{
			donation.DonationID,
			donation.DonatedAt.UTC().Format(time.RFC3339),
			donation.DonorID,
			donation.DonorName,
			string(donation.Category),
			donation.Amount.StringFixed(2),
			donation.FeeAmount.StringFixed(2),
			donation.NetAmount.StringFixed(2),
			donation.Currency,
			recurring,
			donation.SubscriptionID,
			donation.Purpose,
		})
	}
	return rows
}

// WriteCSV writes the header and rows as CSV
func (s *ExportService) WriteCSV(w io.Writer, donations []models.Donation) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range s.BuildRows(donations) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
