package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strings"

	"github.com/cwmia/gateway/internal/config"
	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/store"
)

// defaultPurchaseStatus is applied when the callback omits a status.
const defaultPurchaseStatus = "concluido"

// PurchaseUpdate is the partial patch the automation backend posts after a
// checkout settles. Only present fields are applied.
type PurchaseUpdate struct {
	PurchaseID            string  `json:"purchase_id"`
	Status                *string `json:"status"`
	StripeSessionID       *string `json:"stripe_session_id"`
	StripePaymentIntentID *string `json:"stripe_payment_intent_id"`
	ErrorMessage          *string `json:"error_message"`
}

// CallbackService authenticates the automation backend's purchase-status
// callbacks and applies them. This is shared-secret auth, not end-user
// identity: the caller is the backend itself.
type CallbackService struct {
	purchases PurchaseStore
	cfg       config.CallbackConfig
	logger    *logging.Logger
}

// NewCallbackService wires a callback handler.
func NewCallbackService(purchases PurchaseStore, cfg config.CallbackConfig, logger *logging.Logger) *CallbackService {
	return &CallbackService{purchases: purchases, cfg: cfg, logger: logger}
}

// Authenticate checks the presented bearer token against the configured
// shared secret. The secret must be configured and match exactly.
func (s *CallbackService) Authenticate(token string) error {
	if s.cfg.Secret == "" {
		s.logger.Error("purchase update secret is not configured")
		return errors.Misconfigured("missing N8N_MARKETPLACE_PURCHASE_UPDATE_SECRET")
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Secret)) != 1 {
		return errors.Unauthorized("invalid callback credential")
	}
	return nil
}

// ApplyUpdate authenticates the caller and patches the purchase record.
// Returns the updated record, or nil when no row matched.
func (s *CallbackService) ApplyUpdate(ctx context.Context, token string, upd PurchaseUpdate) (json.RawMessage, error) {
	if err := s.Authenticate(token); err != nil {
		return nil, err
	}

	purchaseID := strings.TrimSpace(upd.PurchaseID)
	if purchaseID == "" {
		return nil, errors.InvalidRequest("purchase_id is required").WithDetails("field", "purchase_id")
	}

	status := defaultPurchaseStatus
	if upd.Status != nil && strings.TrimSpace(*upd.Status) != "" {
		status = *upd.Status
	}

	patch := store.PurchasePatch{
		Status:                status,
		StripeSessionID:       upd.StripeSessionID,
		StripePaymentIntentID: upd.StripePaymentIntentID,
		ErrorMessage:          upd.ErrorMessage,
	}

	row, err := s.purchases.UpdatePurchase(ctx, purchaseID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"purchase_id": purchaseID,
		"status":      status,
	}).Info("purchase status updated")
	return row, nil
}
