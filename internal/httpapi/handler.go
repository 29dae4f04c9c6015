// Package httpapi exposes the gateway's REST surface.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cwmia/gateway/internal/gateway"
	"github.com/cwmia/gateway/internal/httputil"
	"github.com/cwmia/gateway/internal/identity"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/metrics"
	"github.com/cwmia/gateway/internal/middleware"
)

const serviceName = "automation-gateway"

// Handler bundles the HTTP endpoints over the gateway services.
type Handler struct {
	checkout   *gateway.CheckoutService
	generation *gateway.GenerationService
	callback   *gateway.CallbackService
	logger     *logging.Logger
}

// NewHandler creates the endpoint bundle.
func NewHandler(checkout *gateway.CheckoutService, generation *gateway.GenerationService, callback *gateway.CallbackService, logger *logging.Logger) *Handler {
	return &Handler{checkout: checkout, generation: generation, callback: callback, logger: logger}
}

// NewRouter builds the full router with tracing, CORS, and metrics. m may
// be nil to skip instrumentation (tests).
func NewRouter(h *Handler, m *metrics.Metrics, logger *logging.Logger, corsOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.Use(mux.MiddlewareFunc(middleware.NewTracingMiddleware(logger).Handler))
	r.Use(mux.MiddlewareFunc(middleware.NewCORSMiddleware(corsOrigins).Handler))
	if m != nil {
		r.Use(middleware.MetricsMiddleware(serviceName, m))
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/checkout", h.createCheckout).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/generation", h.submitGeneration).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/purchases/callback", h.purchaseCallback).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/creations/complete", h.creationsComplete).Methods(http.MethodPost, http.MethodOptions)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	token := identity.ParseBearer(r.Header.Get("Authorization"))

	var payload struct {
		ItemID string `json:"itemId"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.checkout.CreateCheckout(r.Context(), token, payload.ItemID, requestOrigin(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// generationResponse is the stable wire shape of a generation verdict.
type generationResponse struct {
	CreationID string   `json:"creation_id,omitempty"`
	Approved   bool     `json:"approved"`
	Reason     string   `json:"reason,omitempty"`
	Status     string   `json:"status,omitempty"`
	ReasonCode string   `json:"reason_code,omitempty"`
	RiskScore  *float64 `json:"risk_score,omitempty"`
}

func (h *Handler) submitGeneration(w http.ResponseWriter, r *http.Request) {
	token := identity.ParseBearer(r.Header.Get("Authorization"))

	var req gateway.GenerationRequest
	var payload struct {
		Title             string `json:"title"`
		Mode              string `json:"mode"`
		Theme             string `json:"theme"`
		InspirationPrompt string `json:"inspiration_prompt"`
		Lyrics            string `json:"lyrics"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req = gateway.GenerationRequest{
		Title:             payload.Title,
		Mode:              payload.Mode,
		Theme:             payload.Theme,
		InspirationPrompt: payload.InspirationPrompt,
		Lyrics:            payload.Lyrics,
	}

	result, err := h.generation.SubmitGeneration(r.Context(), token, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := generationResponse{
		CreationID: result.CreationID,
		Approved:   result.Approved,
		Reason:     result.Reason,
		Status:     result.Status,
		ReasonCode: result.ReasonCode,
		RiskScore:  result.RiskScore,
	}
	status := http.StatusOK
	if !result.Approved {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, resp)
}

// purchaseResponse wraps the patched purchase row. Purchase is null when no
// row matched.
type purchaseResponse struct {
	OK       bool        `json:"ok"`
	Purchase interface{} `json:"purchase"`
}

func (h *Handler) purchaseCallback(w http.ResponseWriter, r *http.Request) {
	token := identity.ParseBearer(r.Header.Get("Authorization"))

	var upd gateway.PurchaseUpdate
	if err := httputil.DecodeJSON(r.Body, &upd); err != nil {
		httputil.WriteError(w, err)
		return
	}

	row, err := h.callback.ApplyUpdate(r.Context(), token, upd)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := purchaseResponse{OK: true}
	if row != nil {
		resp.Purchase = row
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) creationsComplete(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusGone, map[string]string{
		"error":   "Deprecated endpoint",
		"message": "This endpoint is disabled. The automation backend writes creation records directly to the data store.",
	})
}

// requestOrigin resolves the scheme://host the frontend reached us on,
// honoring the proxy forwarding headers.
func requestOrigin(r *http.Request) string {
	proto := firstForwarded(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	host := firstForwarded(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host
}

func firstForwarded(value string) string {
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}
