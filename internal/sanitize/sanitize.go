// Package sanitize recovers well-formed values from the automation backend's
// untyped output. The backend's schema has drifted across workflow versions:
// responses arrive as plain JSON, JSON nested one level under "output", a
// single-element array instead of an object, or bare text with a URL in
// broken framing. Every function here is pure and tries the recognized
// shapes in a fixed priority order.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	leadingEquals   = regexp.MustCompile(`^=+`)
	wrappedCheckout = regexp.MustCompile(`(?i)/checkout/=(\S+)$`)
	httpsOneSlash   = regexp.MustCompile(`(?i)^https:/([^/])`)
	httpOneSlash    = regexp.MustCompile(`(?i)^http:/([^/])`)
	bareStripeHost  = regexp.MustCompile(`(?i)^checkout\.stripe\.com/`)
	absoluteURL     = regexp.MustCompile(`(?i)^https?://`)
)

// URL repairs a checkout URL extracted from upstream output. Returns "" when
// no absolute http(s) URL is recoverable. Repair order matters: the wrapped
// form is unwrapped before slash repair because the wrapped value may itself
// need its scheme fixed, and all repairs run before the final scheme check.
func URL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}

	// Stray "=" prefixes are an artifact of upstream template escaping.
	url = leadingEquals.ReplaceAllString(url, "")

	// Unwrap one level of accidental path wrapping: .../checkout/=<real url>.
	if m := wrappedCheckout.FindStringSubmatch(url); m != nil {
		url = m[1]
	}

	// Repair single-slash scheme separators: https:/x -> https://x.
	url = httpsOneSlash.ReplaceAllString(url, "https://$1")
	url = httpOneSlash.ReplaceAllString(url, "http://$1")

	// Bare provider hostname without a scheme.
	if bareStripeHost.MatchString(url) {
		url = "https://" + url
	}

	if !absoluteURL.MatchString(url) {
		return ""
	}
	return url
}

// Object resolves a value to the object to inspect. A single-element array
// of objects is treated as that object; the backend returns one for a
// single-result workflow step.
func Object(value gjson.Result) (gjson.Result, bool) {
	switch {
	case value.IsObject():
		return value, true
	case value.IsArray():
		arr := value.Array()
		if len(arr) > 0 && arr[0].IsObject() {
			return arr[0], true
		}
	}
	return gjson.Result{}, false
}

// ParseObject parses a raw body and resolves it with Object.
func ParseObject(body []byte) (gjson.Result, bool) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, false
	}
	return Object(gjson.ParseBytes(body))
}

// PickString returns the first non-empty string among the given keys, in
// order. Key lists cover the casing and language variants the backend has
// used historically.
func PickString(obj gjson.Result, keys ...string) string {
	for _, key := range keys {
		val := obj.Get(key)
		if val.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(val.String()); s != "" {
			return s
		}
	}
	return ""
}

// PickNestedString looks one container level down (e.g. "metadata") and
// picks a string from it.
func PickNestedString(obj gjson.Result, containerKey string, keys ...string) string {
	container, ok := Object(obj.Get(containerKey))
	if !ok {
		return ""
	}
	return PickString(container, keys...)
}

// Checkout is the normalized shape of a checkout response.
type Checkout struct {
	URL          string
	PurchaseID   string
	SessionID    string
	ErrorMessage string
}

// NormalizeCheckout extracts and sanitizes the checkout fields from a raw
// upstream body. A zero Checkout means nothing usable was found.
func NormalizeCheckout(body []byte) Checkout {
	obj, ok := ParseObject(body)
	if !ok {
		return Checkout{}
	}

	c := Checkout{
		ErrorMessage: PickString(obj, "error", "message"),
		URL:          URL(PickString(obj, "url", "URL", "checkout_url", "checkoutUrl")),
		SessionID:    PickString(obj, "session_id", "sessionId", "id"),
		PurchaseID:   PickString(obj, "purchase_id", "purchaseId"),
	}
	if c.PurchaseID == "" {
		c.PurchaseID = PickNestedString(obj, "metadata", "purchase_id", "purchaseId")
	}
	if c.PurchaseID == "" {
		c.PurchaseID = PickNestedString(obj, "metadados", "purchase_id", "purchaseId")
	}
	return c
}

// Verdict is the approval decision: approved, or rejected with a reason.
type Verdict struct {
	Approved bool
	Reason   string
}

// reasonKeys are the alternate spellings the backend has used for a
// rejection reason, in priority order.
var reasonKeys = []string{"motivo", "reason", "message", "error", "error_message"}

// approvedFlagKeys are the alternate spellings of the boolean approval flag.
var approvedFlagKeys = []string{"approved", "aprovado", "isApproved", "is_approved", "approval"}

// defaultRejectionReason is returned when a rejection carries no reason.
const defaultRejectionReason = "Não aprovado"

// ParseApproval extracts the approval decision from upstream output. The
// second return is false when no recognizable signal exists; the caller
// decides what that means (the generation flow deliberately fails open).
//
// Priority: one level of "output" nesting is unwrapped first; then a string
// "status" field is matched by substring; then a boolean-like approval flag
// is consulted under its alternate spellings.
func ParseApproval(value gjson.Result) (Verdict, bool) {
	obj, ok := Object(value)
	if !ok {
		return Verdict{}, false
	}

	if out := obj.Get("output"); out.Exists() {
		if nested, found := ParseApproval(out); found {
			return nested, true
		}
	}

	if status := obj.Get("status"); status.Type == gjson.String {
		normalized := strings.ToLower(strings.TrimSpace(status.String()))
		if strings.Contains(normalized, "reprov") || strings.Contains(normalized, "reject") {
			return Verdict{Approved: false, Reason: rejectionReason(obj)}, true
		}
		if strings.Contains(normalized, "aprov") || strings.Contains(normalized, "approv") {
			return Verdict{Approved: true}, true
		}
	}

	for _, key := range approvedFlagKeys {
		flag := obj.Get(key)
		if !flag.Exists() || flag.Type == gjson.Null {
			continue
		}
		if flag.Bool() {
			return Verdict{Approved: true}, true
		}
		return Verdict{Approved: false, Reason: rejectionReason(obj)}, true
	}

	return Verdict{}, false
}

func rejectionReason(obj gjson.Result) string {
	if reason := PickString(obj, reasonKeys...); reason != "" {
		return reason
	}
	return defaultRejectionReason
}

// DecisionDetails is best-effort diagnostic metadata extracted alongside the
// verdict. Fields may be entirely absent.
type DecisionDetails struct {
	Status     string
	ReasonCode string
	RiskScore  *float64
}

// Details extracts decision metadata independently of ParseApproval, so the
// diagnostics survive even when the verdict came from a different field set.
func Details(value gjson.Result) DecisionDetails {
	obj, ok := Object(value)
	if !ok {
		return DecisionDetails{}
	}
	base := obj
	if out := obj.Get("output"); out.Exists() {
		if nested, found := Object(out); found {
			base = nested
		}
	}

	var d DecisionDetails
	if s := base.Get("status"); s.Type == gjson.String {
		d.Status = s.String()
	}
	d.ReasonCode = PickString(base, "motivo", "reason_code", "reason")
	for _, key := range []string{"risco", "risk_score", "risk"} {
		if r := base.Get(key); r.Type == gjson.Number {
			score := r.Float()
			d.RiskScore = &score
			break
		}
	}
	return d
}

// CreationID returns the creation identifier from the top-level object, or "".
func CreationID(value gjson.Result) string {
	obj, ok := Object(value)
	if !ok {
		return ""
	}
	id := obj.Get("creation_id")
	if !id.Exists() || id.Type == gjson.Null {
		return ""
	}
	return id.String()
}
