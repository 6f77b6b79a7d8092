package services

import (
	"context"
	"fmt"
	"time"

	"giving-api/internal/config"
	"giving-api/internal/database"
	"giving-api/internal/models"
	"giving-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// ReceiptService sends donation receipts through Brevo. Sends run in a
// goroutine so the payment path never blocks on email delivery; a send
// failure is logged, not surfaced to the donor.
type ReceiptService struct {
	client      *brevo.APIClient
	fromEmail   string
	fromName    string
	serviceName string
}

// NewReceiptService creates a Brevo-backed receipt service
func NewReceiptService() *ReceiptService {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", config.AppConfig.BrevoAPIKey)
	return &ReceiptService{
		client:      brevo.NewAPIClient(cfg),
		fromEmail:   config.AppConfig.BrevoFromEmail,
		fromName:    config.AppConfig.BrevoFromName,
		serviceName: config.AppConfig.ServiceName,
	}
}

// SendDonationReceipt sends the receipt asynchronously and stamps the
// donation once delivery is accepted.
func (s *ReceiptService) SendDonationReceipt(donation *models.Donation) {
	if donation.ReceiptEmail == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.send(ctx, donation); err != nil {
			logging.Errorf("Failed to send donation receipt - donation: %s, email: %s, error: %v",
				donation.DonationID, donation.ReceiptEmail, err)
			return
		}

		if err := database.MarkReceiptSent(donation.DonationID, time.Now()); err != nil {
			logging.Errorf("Failed to mark receipt sent - donation: %s, error: %v", donation.DonationID, err)
			return
		}
		logging.Infof("Donation receipt sent - donation: %s", donation.DonationID)
	}()
}

func (s *ReceiptService) send(ctx context.Context, donation *models.Donation) error {
	subject := fmt.Sprintf("Giving receipt - %s", s.serviceName)
	amount := donation.Amount.StringFixed(2)

	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Giving Receipt</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px; text-align: center;">
				<h1 style="color: #333; margin-bottom: 20px;">Thank you for your gift</h1>
				<p style="color: #666; font-size: 16px; margin-bottom: 20px;">Your %s gift has been received:</p>
				<div style="background-color: #28a745; color: white; padding: 20px; border-radius: 10px; font-size: 32px; font-weight: bold; margin: 20px 0;">
					$%s
				</div>
				<p style="color: #999; font-size: 14px; margin-top: 20px;">Reference: %s</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">Keep this email for your records.</p>
			</div>
		</body>
		</html>
	`, donation.Category.Label(), amount, donation.DonationID)

	textContent := fmt.Sprintf(`
		Thank you for your gift

		Your %s gift of $%s has been received.

		Reference: %s

		Keep this email for your records.
	`, donation.Category.Label(), amount, donation.DonationID)

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.fromName,
			Email: s.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: donation.ReceiptEmail, Name: donation.DonorName},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}
