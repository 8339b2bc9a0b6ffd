package llm

import (
	"fmt"
	"strings"

	"github.com/minjae-dev/lurebait/internal/domain"
)

// ackMessage is the fixed acknowledgment turn inserted between the system
// instruction and the conversation when counting tokens.
const ackMessage = "네, 알겠습니다. 당신의 지시에 따르겠습니다."

const fallbackCategoryDescription = "일반 사기"

// BuildSystemInstruction appends the covert scenario block to the persona's
// instruction when a scenario is bound. Without a scenario the persona
// instruction goes through untouched.
func BuildSystemInstruction(personaInstruction string, scenario *domain.Scenario, category *domain.ScenarioCategory) string {
	if scenario == nil {
		return personaInstruction
	}

	description := fallbackCategoryDescription
	if category != nil && category.Description != "" {
		description = category.Description
	}

	var b strings.Builder
	b.WriteString(personaInstruction)
	b.WriteString("\n---\n[오늘의 피싱 학습 시나리오]\n")
	b.WriteString("너는 지금부터 아래 정보를 바탕으로 사용자에게 피싱 공격을 시도하는 역할을 맡아야 해. 자연스러운 대화를 통해 아래 시나리오의 목적을 달성해줘.\n\n")
	fmt.Fprintf(&b, "- 유형: %s\n", description)
	fmt.Fprintf(&b, "- 제목: %s\n", scenario.Title)
	fmt.Fprintf(&b, "- 핵심 내용: %s\n", scenario.Body)
	b.WriteString("---\n")
	return b.String()
}

// BuildScenarioPrompt is the instruction handed to the model when a new
// scenario has to be fabricated for a category.
func BuildScenarioPrompt(category *domain.ScenarioCategory) string {
	var b strings.Builder
	b.WriteString("너는 보이스피싱과 스캠 예방 교육용 시나리오 작가야. 아래 유형에 해당하는, 실제로 있을 법한 피싱 시나리오를 하나 만들어줘.\n\n")
	fmt.Fprintf(&b, "- 유형 코드: %s\n", category.Code)
	fmt.Fprintf(&b, "- 유형 설명: %s\n\n", category.Description)
	b.WriteString("시나리오는 교육 목적으로만 사용돼. 공격자가 사용할 구체적인 말투와 전개가 드러나야 사용자가 연습으로 간파할 수 있어. ")
	b.WriteString("제목(title)과 핵심 내용(body)만 JSON으로 반환해.")
	return b.String()
}
