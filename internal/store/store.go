// Package store reads catalog records and applies purchase updates through
// the Supabase data store. All access goes through the service-role client;
// records are fetched per request and never cached.
package store

import (
	"context"
	"encoding/json"

	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/supabase"
)

// CatalogItem is a read-only snapshot of a marketplace track.
type CatalogItem struct {
	ID    string
	Title string
	Price float64
}

// PurchasePatch is a partial purchase update. Only non-nil fields are
// applied; Status always is.
type PurchasePatch struct {
	Status                string
	StripeSessionID       *string
	StripePaymentIntentID *string
	ErrorMessage          *string
}

// Store wraps the Supabase tables the gateway touches.
type Store struct {
	sb *supabase.Client
}

// New creates a store over the given client.
func New(sb *supabase.Client) *Store {
	return &Store{sb: sb}
}

// musicRow mirrors the musicas table columns the gateway reads.
type musicRow struct {
	ID     string       `json:"id"`
	Titulo string       `json:"titulo"`
	Preco  *json.Number `json:"preco"`
}

// MusicByID fetches one catalog item. Returns (nil, nil) when absent.
func (s *Store) MusicByID(ctx context.Context, id string) (*CatalogItem, error) {
	resp, err := s.sb.From("musicas").Select("id,titulo,preco").Eq("id", id).Limit(1).Execute(ctx)
	if err != nil {
		return nil, errors.Internal("catalog lookup failed", err)
	}
	if err := resp.Error(); err != nil {
		return nil, errors.Internal("catalog lookup failed", err)
	}

	var rows []musicRow
	if err := resp.JSON(&rows); err != nil {
		return nil, errors.Internal("catalog lookup returned malformed data", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	item := &CatalogItem{ID: rows[0].ID, Title: rows[0].Titulo}
	if rows[0].Preco != nil {
		// A null price means the track is not purchasable; treated as zero.
		price, err := rows[0].Preco.Float64()
		if err != nil {
			return nil, errors.Internal("catalog price is not numeric", err)
		}
		item.Price = price
	}
	return item, nil
}

// UpdatePurchase applies a partial patch to the compras row identified by
// purchaseID and returns the updated record, or nil when no row matched.
func (s *Store) UpdatePurchase(ctx context.Context, purchaseID string, patch PurchasePatch) (json.RawMessage, error) {
	fields := map[string]interface{}{"status": patch.Status}
	if patch.StripeSessionID != nil {
		fields["stripe_session_id"] = *patch.StripeSessionID
	}
	if patch.StripePaymentIntentID != nil {
		fields["stripe_payment_intent_id"] = *patch.StripePaymentIntentID
	}
	if patch.ErrorMessage != nil {
		fields["error_message"] = *patch.ErrorMessage
	}

	resp, err := s.sb.From("compras").Eq("id", purchaseID).ExecuteUpdate(ctx, fields)
	if err != nil {
		return nil, errors.Internal("purchase update failed", err)
	}
	if err := resp.Error(); err != nil {
		return nil, errors.InvalidRequest("purchase update rejected by data store").WithDetails("store_error", err.Error())
	}

	var rows []json.RawMessage
	if err := resp.JSON(&rows); err != nil {
		return nil, errors.Internal("purchase update returned malformed data", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
