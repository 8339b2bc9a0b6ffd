package llm

import (
	"context"
	"fmt"

	"github.com/minjae-dev/lurebait/internal/domain"
)

// MockLLM is a scripted ReplyClient for local development: no credentials,
// no network, deterministic shape.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Available() bool { return true }

func (m *MockLLM) Respond(
	ctx context.Context,
	req domain.ReplyRequest,
) (*domain.StructuredReply, []domain.TranscriptEntry, error) {
	reply := &domain.StructuredReply{
		Response:               fmt.Sprintf("(mock) 네, %q 라고 하셨군요. 조금 더 자세히 말씀해 주세요.", req.UserText),
		SuggestedUserQuestions: []string{"누구세요?", "왜 그게 필요하죠?"},
		ProgressCheck: domain.ProgressCheck{
			StatusSummary:   "mock conversation in progress",
			IsReadyToMoveOn: false,
		},
		NextTopicSuggestions: []string{},
		TokenUsage:           int32(len(req.UserText)),
	}

	transcript := []domain.TranscriptEntry{
		{Role: "user", Text: BuildSystemInstruction(req.SystemInstruction, req.Scenario, req.Category)},
		{Role: "model", Text: ackMessage},
		{Role: "user", Text: req.UserText},
	}

	return reply, transcript, nil
}

func (m *MockLLM) SynthesizeScenario(
	ctx context.Context,
	category *domain.ScenarioCategory,
) (*domain.ScenarioDraft, error) {
	return &domain.ScenarioDraft{
		Title: fmt.Sprintf("(mock) %s 훈련 시나리오", category.Code),
		Body:  fmt.Sprintf("%s 상황을 가정한 연습용 시나리오입니다.", category.Description),
	}, nil
}
