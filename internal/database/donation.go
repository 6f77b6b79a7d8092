package database

import (
	"time"

	"giving-api/internal/models"
)

// CreateDonation persists a confirmed donation. Donations are write-once;
// only the receipt stamp is updated afterwards.
func CreateDonation(donation *models.Donation) error {
	return DB.Create(donation).Error
}

// GetDonationByDonationID gets a donation by its public id
func GetDonationByDonationID(donationID string) (*models.Donation, error) {
	var donation models.Donation
	err := DB.Where("donation_id = ?", donationID).First(&donation).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// MarkReceiptSent stamps the receipt-sent flag on a donation
func MarkReceiptSent(donationID string, sentAt time.Time) error {
	return DB.Model(&models.Donation{}).
		Where("donation_id = ?", donationID).
		Updates(map[string]interface{}{
			"receipt_sent":    true,
			"receipt_sent_at": sentAt,
		}).Error
}

// DonationFilter narrows donation listings
type DonationFilter struct {
	Category    models.Category
	IsRecurring *bool
}

// ListDonations returns one page of a donor's donations, newest first,
// together with the total matching count.
func ListDonations(donorID string, page, size int, filter DonationFilter) ([]models.Donation, int64, error) {
	query := DB.Model(&models.Donation{}).Where("donor_id = ?", donorID)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.IsRecurring != nil {
		query = query.Where("is_recurring = ?", *filter.IsRecurring)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var donations []models.Donation
	err := query.Order("donated_at DESC, donation_id ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&donations).Error
	if err != nil {
		return nil, 0, err
	}

	return donations, total, nil
}

// GetDonationsBetween returns all donations in [start, end) across donors,
// used by the analytics aggregator.
func GetDonationsBetween(start, end time.Time) ([]models.Donation, error) {
	var donations []models.Donation
	err := DB.Where("donated_at >= ? AND donated_at < ?", start, end).
		Order("donated_at ASC").
		Find(&donations).Error
	return donations, err
}
