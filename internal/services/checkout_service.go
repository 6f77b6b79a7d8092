package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"giving-api/internal/config"
	"giving-api/internal/database"
	"giving-api/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CheckoutState is the position of a checkout session in the donation flow.
type CheckoutState string

const (
	StateDrafting       CheckoutState = "drafting"
	StatePaymentPending CheckoutState = "payment_pending"
	StateCompleted      CheckoutState = "completed"
)

// CheckoutSession holds one donor's in-progress donation. The draft is
// editable only while drafting; submit freezes it for payment. Sessions
// live in Redis and expire with their TTL if abandoned.
type CheckoutSession struct {
	ID         string               `json:"id"`
	DonorID    string               `json:"donor_id"`
	State      CheckoutState        `json:"state"`
	Draft      models.DonationDraft `json:"draft"`
	ResultKind string               `json:"result_kind,omitempty"` // donation or subscription
	ResultID   string               `json:"result_id,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// CheckoutStore persists checkout sessions
type CheckoutStore interface {
	SaveSession(ctx context.Context, session *CheckoutSession) error
	GetSession(ctx context.Context, id string) (*CheckoutSession, error)
	DeleteSession(ctx context.Context, id string) error
}

// RedisCheckoutStore stores checkout sessions as JSON blobs with a TTL
type RedisCheckoutStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCheckoutStore creates a Redis-backed checkout store
func NewRedisCheckoutStore(client *redis.Client, ttl time.Duration) *RedisCheckoutStore {
	return &RedisCheckoutStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout_session:%s", id)
}

// SaveSession stores a session and refreshes its TTL
func (s *RedisCheckoutStore) SaveSession(ctx context.Context, session *CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err()
}

// GetSession loads a session by id
func (s *RedisCheckoutStore) GetSession(ctx context.Context, id string) (*CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var session CheckoutSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session
func (s *RedisCheckoutStore) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var minimumGift = decimal.NewFromInt(1)

// CheckoutService drives a donation attempt through the checkout flow:
// drafting -> payment_pending -> completed, with back and start-over edges.
type CheckoutService struct {
	store CheckoutStore
	now   func() time.Time
}

// NewCheckoutService creates a checkout service backed by Redis
func NewCheckoutService() *CheckoutService {
	ttl := time.Duration(config.AppConfig.CheckoutSessionTTLMinutes) * time.Minute
	return NewCheckoutServiceWithStore(NewRedisCheckoutStore(database.GetRedis(), ttl))
}

// NewCheckoutServiceWithStore creates a checkout service with a custom store
func NewCheckoutServiceWithStore(store CheckoutStore) *CheckoutService {
	return &CheckoutService{
		store: store,
		now:   time.Now,
	}
}

// Start opens a fresh checkout session in the drafting state
func (s *CheckoutService) Start(ctx context.Context, donorID string) (*CheckoutSession, error) {
	now := s.now()
	session := &CheckoutSession{
		ID:        uuid.NewString(),
		DonorID:   donorID,
		State:     StateDrafting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, &ApiError{Op: "save checkout session", Err: err}
	}
	return session, nil
}

// Get loads a session and verifies it belongs to the donor
func (s *CheckoutService) Get(ctx context.Context, id, donorID string) (*CheckoutSession, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, &ApiError{Op: "load checkout session", Err: err}
	}
	if session.DonorID != donorID {
		return nil, ErrNotFound
	}
	return session, nil
}

// UpdateDraft replaces the draft while in the drafting state. Edits after
// submit are rejected; the donor must go back first.
func (s *CheckoutService) UpdateDraft(ctx context.Context, id, donorID string, draft models.DonationDraft) (*CheckoutSession, error) {
	session, err := s.Get(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if session.State != StateDrafting {
		return nil, ErrInvalidState
	}
	session.Draft = draft
	session.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, &ApiError{Op: "save checkout session", Err: err}
	}
	return session, nil
}

// SubmitDraft validates the draft and freezes it for payment. On a
// validation failure the session stays in drafting with the draft intact
// and a field-level error map is returned.
func (s *CheckoutService) SubmitDraft(ctx context.Context, id, donorID string) (*CheckoutSession, error) {
	session, err := s.Get(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if session.State != StateDrafting {
		return nil, ErrInvalidState
	}

	draft := session.Draft
	if draft.IsRecurring && draft.Frequency == "" {
		draft.Frequency = models.FrequencyMonthly
	}
	if !draft.IsRecurring {
		// Notes are a recurring-only field
		draft.Notes = ""
		draft.Frequency = ""
	}

	if fields := validateDraft(draft); len(fields) > 0 {
		return session, &ValidationError{Fields: fields}
	}

	session.Draft = draft
	session.State = StatePaymentPending
	session.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, &ApiError{Op: "save checkout session", Err: err}
	}
	return session, nil
}

// GoBack returns a submitted session to drafting. Any in-flight payment
// attempt is considered abandoned; the draft fields are untouched.
func (s *CheckoutService) GoBack(ctx context.Context, id, donorID string) (*CheckoutSession, error) {
	session, err := s.Get(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if session.State != StatePaymentPending {
		return nil, ErrInvalidState
	}
	session.State = StateDrafting
	session.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, &ApiError{Op: "save checkout session", Err: err}
	}
	return session, nil
}

// Complete records the payment result and moves the session to its
// terminal state.
func (s *CheckoutService) Complete(ctx context.Context, id, donorID, resultKind, resultID string) (*CheckoutSession, error) {
	session, err := s.Get(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if session.State != StatePaymentPending {
		return nil, ErrInvalidState
	}
	session.State = StateCompleted
	session.ResultKind = resultKind
	session.ResultID = resultID
	session.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, &ApiError{Op: "save checkout session", Err: err}
	}
	return session, nil
}

// StartOver resets the session to drafting with a blank draft,
// unconditionally from any state.
func (s *CheckoutService) StartOver(ctx context.Context, id, donorID string) (*CheckoutSession, error) {
	session, err := s.Get(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	session.State = StateDrafting
	session.Draft = models.DonationDraft{}
	session.ResultKind = ""
	session.ResultID = ""
	session.UpdatedAt = s.now()
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, &ApiError{Op: "save checkout session", Err: err}
	}
	return session, nil
}

// validateDraft checks the draft invariants and returns per-field messages
func validateDraft(draft models.DonationDraft) map[string]string {
	fields := make(map[string]string)

	if draft.Amount.LessThan(minimumGift) {
		fields["amount"] = "amount must be at least 1.00"
	}
	if draft.Category == "" {
		fields["category"] = "category is required"
	} else if !draft.Category.Valid() {
		fields["category"] = "unknown category"
	}
	if len(draft.Purpose) > 500 {
		fields["purpose"] = "purpose must be 500 characters or less"
	}
	if draft.ReceiptEmail != "" && !emailPattern.MatchString(draft.ReceiptEmail) {
		fields["receipt_email"] = "receipt email is not a valid email address"
	}
	if draft.IsRecurring {
		if !draft.Frequency.Valid() {
			fields["frequency"] = "unknown frequency"
		}
		if len(draft.Notes) > 1000 {
			fields["notes"] = "notes must be 1000 characters or less"
		}
	}

	return fields
}
