package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cwmia/gateway/internal/config"
	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/sanitize"
)

// Mode selects how a generation request describes the desired track.
type Mode string

const (
	ModeInspiration Mode = "inspiration"
	ModeLyrics      Mode = "lyrics"
)

// normalizeMode maps any unrecognized mode to inspiration.
func normalizeMode(raw string) Mode {
	if Mode(strings.TrimSpace(raw)) == ModeLyrics {
		return ModeLyrics
	}
	return ModeInspiration
}

// GenerationRequest is a content-generation submission. Exactly one of
// InspirationPrompt/Lyrics must be populated, selected by Mode.
type GenerationRequest struct {
	Title             string
	Mode              string
	Theme             string
	InspirationPrompt string
	Lyrics            string
}

// GenerationResult is the approval verdict plus best-effort diagnostics.
// Rejection is a result, not an error: the HTTP layer maps it to 422.
type GenerationResult struct {
	CreationID string
	Approved   bool
	Reason     string
	Status     string
	ReasonCode string
	RiskScore  *float64
}

type generationPayload struct {
	Title             string      `json:"title"`
	Mode              string      `json:"mode"`
	InputType         string      `json:"input_type"`
	HasLyrics         bool        `json:"has_lyrics"`
	Theme             string      `json:"theme"`
	InspirationPrompt *string     `json:"inspiration_prompt"`
	Lyrics            *string     `json:"lyrics"`
	User              payloadUser `json:"user"`
	Source            string      `json:"source"`
	CreatedAt         string      `json:"created_at"`
}

// GenerationService submits creative prompts for moderation by the
// automation backend.
type GenerationService struct {
	verifier IdentityVerifier
	webhook  WebhookClient
	cfg      config.GenerationConfig
	logger   *logging.Logger
}

// NewGenerationService wires a generation orchestrator.
func NewGenerationService(verifier IdentityVerifier, webhook WebhookClient, cfg config.GenerationConfig, logger *logging.Logger) *GenerationService {
	return &GenerationService{verifier: verifier, webhook: webhook, cfg: cfg, logger: logger}
}

// SubmitGeneration validates the request, forwards it to the mode's webhook,
// and parses the approval decision. When the backend emits no recognizable
// decision signal the request counts as approved; see ParseApproval.
func (s *GenerationService) SubmitGeneration(ctx context.Context, accessToken string, req GenerationRequest) (*GenerationResult, error) {
	user, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	mode := normalizeMode(req.Mode)
	theme := strings.TrimSpace(req.Theme)
	prompt := strings.TrimSpace(req.InspirationPrompt)
	lyrics := strings.TrimSpace(req.Lyrics)
	title := strings.TrimSpace(req.Title)

	if theme == "" {
		return nil, errors.InvalidRequest("theme is required").WithDetails("field", "theme")
	}
	if mode == ModeInspiration && prompt == "" {
		return nil, errors.InvalidRequest("inspiration_prompt is required when mode=inspiration").WithDetails("field", "inspiration_prompt")
	}
	if mode == ModeLyrics && lyrics == "" {
		return nil, errors.InvalidRequest("lyrics is required when mode=lyrics").WithDetails("field", "lyrics")
	}
	if title == "" {
		return nil, errors.InvalidRequest("title is required").WithDetails("field", "title")
	}

	webhookURL := s.cfg.ResolveWebhookURL(mode == ModeLyrics)
	if webhookURL == "" {
		s.logger.WithContext(ctx).Error("no generation webhook URL configured for mode " + string(mode))
		return nil, errors.Misconfigured("missing N8N_CREATIONS_WEBHOOK_WITH_LYRICS_URL / N8N_CREATIONS_WEBHOOK_NO_LYRICS_URL (or legacy N8N_WEBHOOK_URL)")
	}

	payload := generationPayload{
		Title:     title,
		Mode:      string(mode),
		InputType: "prompt",
		HasLyrics: mode == ModeLyrics,
		Theme:     theme,
		User:      userRef(user),
		Source:    sourceName,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if mode == ModeLyrics {
		payload.InputType = "lyrics"
		payload.Lyrics = &lyrics
	} else {
		payload.InspirationPrompt = &prompt
	}

	resp, err := s.webhook.Post(ctx, webhookURL, s.cfg.Secret, payload, s.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"upstream_status": resp.Status,
			"upstream_body":   string(resp.Body),
		}).Error("generation webhook returned an error")
		return nil, errors.UpstreamError(resp.Status, string(resp.Body))
	}

	var (
		verdict sanitize.Verdict
		decided bool
		details sanitize.DecisionDetails
	)
	creationID := ""
	if strings.Contains(resp.ContentType, "application/json") && gjson.ValidBytes(resp.Body) {
		root := gjson.ParseBytes(resp.Body)
		verdict, decided = sanitize.ParseApproval(root)
		details = sanitize.Details(root)
		creationID = sanitize.CreationID(root)
	}
	if !decided {
		// Fail-open: no recognizable decision signal counts as approval.
		// Flagged for product review; preserved deliberately.
		verdict = sanitize.Verdict{Approved: true}
	}

	result := &GenerationResult{
		CreationID: creationID,
		Approved:   verdict.Approved,
		Status:     details.Status,
		ReasonCode: details.ReasonCode,
		RiskScore:  details.RiskScore,
	}

	if !verdict.Approved {
		result.Reason = verdict.Reason
		if result.Status == "" {
			result.Status = "reprovado"
		}
		if result.ReasonCode == "" {
			result.ReasonCode = verdict.Reason
		}
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"status":      result.Status,
			"reason":      result.Reason,
			"creation_id": result.CreationID,
		}).Info("generation rejected by automation backend")
		return result, nil
	}

	if result.Status == "" {
		result.Status = "aprovado"
	}
	return result, nil
}
