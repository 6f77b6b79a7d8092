package database

import (
	"giving-api/internal/models"
)

// CreateSubscription persists a new subscription
func CreateSubscription(subscription *models.Subscription) error {
	return DB.Create(subscription).Error
}

// UpdateSubscription updates an existing subscription
func UpdateSubscription(subscription *models.Subscription) error {
	return DB.Save(subscription).Error
}

// GetSubscriptionByID gets a subscription by its public id
func GetSubscriptionByID(subscriptionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("subscription_id = ?", subscriptionID).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetSubscriptionByBillingRef gets a subscription by the external billing
// reference, used when absorbing billing webhooks.
func GetSubscriptionByBillingRef(billingRef string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("billing_ref = ?", billingRef).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetDonorSubscriptions gets all subscriptions belonging to a donor
func GetDonorSubscriptions(donorID string) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := DB.Where("donor_id = ?", donorID).Order("created_at DESC").Find(&subscriptions).Error
	return subscriptions, err
}
