package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/minjae-dev/lurebait/internal/domain"
)

const maxSuggestedQuestions = 3

// replySchema constrains every chat reply to a fixed JSON shape. There is
// deliberately no token-usage property: usage comes from a separate
// accounting call, not from anything the model could hallucinate.
var replySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"response": {
			Type:        genai.TypeString,
			Description: "사용자 질문에 대한 AI의 핵심 답변",
		},
		"suggested_user_questions": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "사용자가 다음에 할 법한 질문 제안 목록 (최대 3개)",
		},
		"progress_check": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"status_summary": {
					Type:        genai.TypeString,
					Description: "현재 대화 상태에 대한 요약",
				},
				"is_ready_to_move_on": {
					Type:        genai.TypeBoolean,
					Description: "현재 주제에 대한 이야기가 충분하여 다음 주제로 넘어갈 준비가 되었는지 여부",
				},
			},
			Required: []string{"status_summary", "is_ready_to_move_on"},
		},
		"session_end_message": {
			Type:        genai.TypeString,
			Nullable:    genaiTrue,
			Description: "대화가 끝날 때 표시할 최종 메시지",
		},
		"next_topic_suggestions": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "현재 주제가 끝났을 때 제안할 다음 주제 목록",
		},
	},
	Required: []string{"response", "suggested_user_questions", "progress_check"},
}

// scenarioSchema restricts synthesized scenarios to a title and a body.
var scenarioSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString, Description: "시나리오 제목"},
		"body":  {Type: genai.TypeString, Description: "시나리오 핵심 내용"},
	},
	Required: []string{"title", "body"},
}

var genaiTrue = boolPtr(true)

func boolPtr(v bool) *bool { return &v }

// decodeReply parses and validates a raw model reply. Any parse or shape
// failure maps to domain.ErrMalformedResponse; the suggestions list is
// clamped rather than rejected when the model overshoots the limit.
func decodeReply(raw string) (*domain.StructuredReply, error) {
	var reply domain.StructuredReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(reply.Response) == "" {
		return nil, fmt.Errorf("%w: empty response field", domain.ErrMalformedResponse)
	}
	if reply.SuggestedUserQuestions == nil {
		return nil, fmt.Errorf("%w: missing suggested_user_questions", domain.ErrMalformedResponse)
	}
	if len(reply.SuggestedUserQuestions) > maxSuggestedQuestions {
		reply.SuggestedUserQuestions = reply.SuggestedUserQuestions[:maxSuggestedQuestions]
	}
	if reply.NextTopicSuggestions == nil {
		reply.NextTopicSuggestions = []string{}
	}
	return &reply, nil
}

func decodeDraft(raw string) (*domain.ScenarioDraft, error) {
	var draft domain.ScenarioDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("decode scenario draft: %w", err)
	}
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Body) == "" {
		return nil, fmt.Errorf("scenario draft missing title or body")
	}
	return &draft, nil
}
