package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"giving-api/internal/database"
	"giving-api/internal/response"
	"giving-api/internal/services"

	"github.com/gin-gonic/gin"
)

// parseAnalyticsRange reads the range selection from query parameters
func parseAnalyticsRange(c *gin.Context) services.AnalyticsRange {
	r := services.AnalyticsRange{Preset: c.DefaultQuery("range", "30d")}
	startParam := c.Query("start")
	endParam := c.Query("end")
	if startParam != "" && endParam != "" {
		if start, err := time.Parse(time.RFC3339, startParam); err == nil {
			if end, err := time.Parse(time.RFC3339, endParam); err == nil {
				r = services.AnalyticsRange{Start: start, End: end}
			}
		}
	}
	return r
}

// GetAnalytics returns the aggregate giving snapshot for a range
// GET /api/admin/analytics?range=30d  (or ?start=...&end=... in RFC3339)
func GetAnalytics(c *gin.Context) {
	svc := services.NewAnalyticsService()
	snapshot, err := svc.Query(c.Request.Context(), parseAnalyticsRange(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessJSON(c, snapshot)
}

// ExportDonations streams the donation records for a range as CSV
// GET /api/admin/analytics/export?format=csv&range=30d
func ExportDonations(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" {
		response.ErrorJSON(c, http.StatusBadRequest, "Unsupported export format: "+format)
		return
	}

	svc := services.NewAnalyticsService()
	start, end, err := svc.ResolveRange(parseAnalyticsRange(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	donations, err := database.GetDonationsBetween(start, end)
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load donations")
		return
	}

	var buf bytes.Buffer
	if err := services.NewExportService().WriteCSV(&buf, donations); err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to build export")
		return
	}

	filename := fmt.Sprintf("donations-%s-%s.csv", start.Format("20060102"), end.Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
