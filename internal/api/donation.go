package api

import (
	"net/http"
	"strconv"

	"giving-api/internal/database"
	"giving-api/internal/middleware"
	"giving-api/internal/models"
	"giving-api/internal/response"

	"github.com/gin-gonic/gin"
)

// DonationPageResponse is one page of a donor's giving history
type DonationPageResponse struct {
	Donations  []models.Donation `json:"donations"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
	TotalPages int64             `json:"total_pages"`
}

// ListDonations returns one page of the caller's donations
// GET /api/donations?page=1&size=20&category=tithes&recurring=true
func ListDonations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if size < 1 || size > 100 {
		size = 20
	}

	filter := database.DonationFilter{}
	if category := c.Query("category"); category != "" {
		filter.Category = models.Category(category)
		if !filter.Category.Valid() {
			response.ErrorJSON(c, http.StatusBadRequest, "Unknown category")
			return
		}
	}
	if recurring := c.Query("recurring"); recurring != "" {
		value := recurring == "true"
		filter.IsRecurring = &value
	}

	donations, total, err := database.ListDonations(middleware.DonorID(c), page, size, filter)
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list donations")
		return
	}

	totalPages := total / int64(size)
	if total%int64(size) != 0 {
		totalPages++
	}

	response.SuccessJSON(c, DonationPageResponse{
		Donations:  donations,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: totalPages,
	})
}

// GetDonation returns one of the caller's donations
// GET /api/donations/:id
func GetDonation(c *gin.Context) {
	donation, err := database.GetDonationByDonationID(c.Param("id"))
	if err != nil || donation.DonorID != middleware.DonorID(c) {
		response.ErrorJSON(c, http.StatusNotFound, "Donation not found")
		return
	}
	response.SuccessJSON(c, donation)
}
