package gateway

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cwmia/gateway/internal/config"
	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/sanitize"
)

// CheckoutService initiates purchase checkouts through the automation
// backend.
type CheckoutService struct {
	verifier IdentityVerifier
	catalog  Catalog
	webhook  WebhookClient
	cfg      config.CheckoutConfig
	logger   *logging.Logger
}

// NewCheckoutService wires a checkout orchestrator.
func NewCheckoutService(verifier IdentityVerifier, catalog Catalog, webhook WebhookClient, cfg config.CheckoutConfig, logger *logging.Logger) *CheckoutService {
	return &CheckoutService{verifier: verifier, catalog: catalog, webhook: webhook, cfg: cfg, logger: logger}
}

// CheckoutResult is the stable response toward the frontend. URL is always
// an absolute http(s) URL; a request that cannot produce one fails instead.
type CheckoutResult struct {
	URL        string `json:"url"`
	PurchaseID string `json:"purchase_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

type checkoutPayload struct {
	Event     string           `json:"event"`
	Source    string           `json:"source"`
	CreatedAt string           `json:"created_at"`
	User      payloadUser      `json:"user"`
	Purchase  checkoutPurchase `json:"purchase"`
	Redirect  checkoutRedirect `json:"redirect"`
	Policy    checkoutPolicy   `json:"policy"`
}

type checkoutPurchase struct {
	Kind     string  `json:"kind"`
	MusicID  string  `json:"music_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Title    string  `json:"title"`
}

type checkoutRedirect struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type checkoutPolicy struct {
	ExpiresMinutes int `json:"expires_minutes"`
}

// CreateCheckout verifies the caller, prices the item from the catalog, and
// asks the automation backend for a checkout session. The amount sent
// upstream is always the catalog-verified price; client-supplied prices are
// never accepted. origin is the scheme://host the redirect URLs point back
// to.
func (s *CheckoutService) CreateCheckout(ctx context.Context, accessToken, itemID, origin string) (*CheckoutResult, error) {
	user, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, errors.InvalidRequest("itemId is required").WithDetails("field", "itemId")
	}

	item, err := s.catalog.MusicByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.NotFound("music not found")
	}

	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price < 0 {
		return nil, errors.InvalidState("catalog price is invalid").WithDetails("music_id", item.ID)
	}
	if item.Price == 0 {
		// Free tracks are claimed directly; they never go through checkout.
		return nil, errors.InvalidState("free items cannot be checked out").WithDetails("music_id", item.ID)
	}

	if s.cfg.WebhookURL == "" {
		s.logger.WithContext(ctx).Error("checkout webhook URL is not configured")
		return nil, errors.Misconfigured("missing N8N_MARKETPLACE_CHECKOUT_URL")
	}

	payload := checkoutPayload{
		Event:     eventStartCheckout,
		Source:    sourceName,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		User:      userRef(user),
		Purchase: checkoutPurchase{
			Kind:     purchaseKind,
			MusicID:  item.ID,
			Amount:   item.Price,
			Currency: checkoutCurrency,
			Title:    item.Title,
		},
		Redirect: checkoutRedirect{
			// The {CHECKOUT_SESSION_ID} and {PURCHASE_ID} placeholders are
			// substituted by the checkout provider and must pass through
			// verbatim.
			SuccessURL: fmt.Sprintf("%s/checkout/success?session_id={CHECKOUT_SESSION_ID}&purchase_id={PURCHASE_ID}", origin),
			CancelURL:  fmt.Sprintf("%s/checkout/cancel?purchase_id={PURCHASE_ID}", origin),
		},
		Policy: checkoutPolicy{ExpiresMinutes: s.cfg.ExpiresMinutes},
	}

	resp, err := s.webhook.Post(ctx, s.cfg.WebhookURL, s.cfg.Secret, payload, s.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"upstream_status": resp.Status,
			"upstream_body":   string(resp.Body),
		}).Error("checkout webhook returned an error")
		return nil, errors.UpstreamError(resp.Status, string(resp.Body))
	}

	normalized := sanitize.NormalizeCheckout(resp.Body)
	finalURL := normalized.URL
	if finalURL == "" {
		// The backend occasionally answers with a bare URL as plain text.
		finalURL = sanitize.URL(string(resp.Body))
	}
	if finalURL == "" {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"upstream_status": resp.Status,
			"upstream_body":   string(resp.Body),
		}).Error("checkout response carried no recoverable URL")
		msg := normalized.ErrorMessage
		if msg == "" {
			msg = "no checkout URL in automation response"
		}
		return nil, errors.UpstreamContract(msg)
	}

	return &CheckoutResult{
		URL:        finalURL,
		PurchaseID: normalized.PurchaseID,
		SessionID:  normalized.SessionID,
	}, nil
}
