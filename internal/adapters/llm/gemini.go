package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/minjae-dev/lurebait/internal/domain"
	"github.com/minjae-dev/lurebait/internal/observability"
)

const (
	replyTemperature    = 0.7
	scenarioTemperature = 0.9

	transcriptExcerptLen = 1000
)

// GeminiClient implements domain.ReplyClient on top of the Gemini API.
// Constructed without an API key it stays in a disabled state: Available
// reports false and every call fails with domain.ErrServiceDisabled, so
// callers can probe before doing any work.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	if apiKey == "" {
		observability.Logger().Warn("GEMINI_API_KEY not set, AI replies are disabled")
		return &GeminiClient{modelName: modelName}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Available implements the availability probe of domain.ReplyClient.
func (g *GeminiClient) Available() bool {
	return g.client != nil
}

// Respond implements domain.ReplyClient.
func (g *GeminiClient) Respond(
	ctx context.Context,
	req domain.ReplyRequest,
) (*domain.StructuredReply, []domain.TranscriptEntry, error) {
	if !g.Available() {
		return nil, nil, fmt.Errorf("gemini respond: %w", domain.ErrServiceDisabled)
	}

	log := observability.LoggerFromContext(ctx)

	system := BuildSystemInstruction(req.SystemInstruction, req.Scenario, req.Category)

	// The scripted opening was shown to the user but may not be a persisted
	// message yet, so with an empty history it enters as a synthetic model turn.
	var contents []*genai.Content
	if req.ScriptedOpening != "" && len(req.History) == 0 {
		contents = append(contents, genai.NewContentFromText(req.ScriptedOpening, genai.RoleModel))
	}

	for _, m := range req.History {
		role := genai.Role(genai.RoleModel)
		if m.Sender == domain.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	userParts := []*genai.Part{genai.NewPartFromText(req.UserText)}
	if len(req.Attachment) > 0 {
		if mimeType, ok := sniffImageMIME(req.Attachment); ok {
			userParts = append(userParts, genai.NewPartFromBytes(req.Attachment, mimeType))
			log.Info("attachment included in prompt", "mime", mimeType, "bytes", len(req.Attachment))
		} else {
			// Undecodable image degrades to text only, never aborts the turn.
			log.Warn("attachment is not a recognizable image, sending text only")
		}
	}
	contents = append(contents, genai.NewContentFromParts(userParts, genai.RoleUser))

	// Token accounting runs over the same effective content the model sees:
	// system instruction as a user turn, a fixed acknowledgment, then the
	// assembled conversation.
	counting := make([]*genai.Content, 0, len(contents)+2)
	counting = append(counting,
		genai.NewContentFromText(system, genai.RoleUser),
		genai.NewContentFromText(ackMessage, genai.RoleModel),
	)
	counting = append(counting, contents...)

	count, err := g.client.Models.CountTokens(ctx, g.modelName, counting, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: count tokens: %v", domain.ErrProviderUnavailable, err)
	}

	temp := float32(replyTemperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    replySchema,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate content: %v", domain.ErrProviderUnavailable, err)
	}

	reply, err := decodeReply(res.Text())
	if err != nil {
		log.Error("gemini returned an unusable reply", "error", err)
		return nil, nil, err
	}
	reply.TokenUsage = count.TotalTokens

	log.Info("gemini reply generated",
		"model", g.modelName,
		"history_len", len(req.History),
		"tokens", reply.TokenUsage)

	return reply, buildTranscript(counting), nil
}

// SynthesizeScenario implements domain.ReplyClient. Every failure mode maps
// to domain.ErrGenerationFailed; the caller decides whether to retry or to
// abort conversation creation.
func (g *GeminiClient) SynthesizeScenario(
	ctx context.Context,
	category *domain.ScenarioCategory,
) (*domain.ScenarioDraft, error) {
	if !g.Available() {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, domain.ErrServiceDisabled)
	}

	log := observability.LoggerFromContext(ctx)

	temp := float32(scenarioTemperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   scenarioSchema,
	}

	contents := []*genai.Content{
		genai.NewContentFromText(BuildScenarioPrompt(category), genai.RoleUser),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", domain.ErrGenerationFailed, err)
	}

	draft, err := decodeDraft(res.Text())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	log.Info("scenario synthesized", "category", category.Code, "title", draft.Title)
	return draft, nil
}

// sniffImageMIME detects the attachment format from the byte content itself.
func sniffImageMIME(data []byte) (string, bool) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", false
	}
	return mimeType, true
}

// buildTranscript renders the exact content sequence sent to the provider
// as role + text excerpts. Raw binary is summarized, never included.
func buildTranscript(contents []*genai.Content) []domain.TranscriptEntry {
	out := make([]domain.TranscriptEntry, 0, len(contents))
	for _, c := range contents {
		var parts []string
		for _, p := range c.Parts {
			switch {
			case p.Text != "":
				parts = append(parts, excerpt(p.Text))
			case p.InlineData != nil:
				parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", p.InlineData.MIMEType, len(p.InlineData.Data)))
			}
		}
		out = append(out, domain.TranscriptEntry{
			Role: string(c.Role),
			Text: strings.Join(parts, "\n"),
		})
	}
	return out
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= transcriptExcerptLen {
		return s
	}
	return string(runes[:transcriptExcerptLen]) + "…"
}
