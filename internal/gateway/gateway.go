// Package gateway holds the orchestrators that mediate between the
// marketplace frontend and the workflow-automation backend: checkout
// initiation, generation approval, and the inbound purchase callback.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cwmia/gateway/internal/automation"
	"github.com/cwmia/gateway/internal/identity"
	"github.com/cwmia/gateway/internal/store"
)

// Payload constants the automation workflows key on. Changing any of these
// breaks deployed flows.
const (
	sourceName         = "cwmia-web"
	eventStartCheckout = "start_checkout"
	purchaseKind       = "marketplace_music"
	checkoutCurrency   = "brl"
)

// IdentityVerifier resolves end-user bearer tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, accessToken string) (*identity.Identity, error)
}

// Catalog looks up marketplace tracks.
type Catalog interface {
	MusicByID(ctx context.Context, id string) (*store.CatalogItem, error)
}

// PurchaseStore applies purchase patches.
type PurchaseStore interface {
	UpdatePurchase(ctx context.Context, purchaseID string, patch store.PurchasePatch) (json.RawMessage, error)
}

// WebhookClient posts to automation webhooks.
type WebhookClient interface {
	Post(ctx context.Context, webhookURL, secret string, payload interface{}, timeout time.Duration) (*automation.Response, error)
}

// payloadUser identifies the acting user in outbound payloads. Email is a
// pointer so an unknown email serializes as null, as the workflows expect.
type payloadUser struct {
	ID    string  `json:"id"`
	Email *string `json:"email"`
}

func userRef(id *identity.Identity) payloadUser {
	u := payloadUser{ID: id.ID}
	if id.Email != "" {
		email := id.Email
		u.Email = &email
	}
	return u
}
