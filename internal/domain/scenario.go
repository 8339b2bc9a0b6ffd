package domain

// Scenario is a concrete deception script a persona is covertly instructed
// to enact. Immutable once created; conversations reference it by ID.
type Scenario struct {
	ID           ScenarioID
	CategoryCode string
	Title        string
	Body         string
	ReferenceURL string
	CreatedAt    Timestamp
}

// ScenarioCategory is a stable category code with a human description.
// Categories are seeded once and read-only afterwards.
type ScenarioCategory struct {
	Code        string
	Description string
}

// ScenarioDraft is the synthesizer's output before it is persisted.
type ScenarioDraft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SeedCategories returns the built-in scenario categories. Descriptions are
// the instruction text handed to both the scenario block and the synthesizer.
func SeedCategories() []*ScenarioCategory {
	return []*ScenarioCategory{
		{Code: "GovScam", Description: "검찰, 경찰, 금감원 등 공공기관이나 금융기관을 사칭하는 유형"},
		{Code: "FriendScam", Description: "가족, 친구, 직장동료 등 지인을 사칭하여 금전을 요구하는 유형"},
		{Code: "LoanScam", Description: "저금리 대출, 정부 지원 대출 등을 미끼로 접근하는 유형"},
		{Code: "Smishing", Description: "문자메시지(SMS) 또는 메신저 내 URL 클릭을 유도하거나 악성 앱 설치를 유도하는 유형"},
		{Code: "DeliveryScam", Description: "택배 배송 조회, 카드 결제 오류, 통관 등을 사칭하는 유형"},
		{Code: "Sextortion", Description: "음란 화상 채팅(몸캠) 후 협박하여 금품을 요구하는 유형"},
		{Code: "InvestScam", Description: "고수익 보장을 미끼로 투자를 유도하는 유형 (주식, 코인, 부동산 등)"},
		{Code: "NewAlerts", Description: "새롭게 등장하거나 기존 수법이 변형되어 주의가 필요한 최신 피싱 및 스캠 수법 또는 관련 주의 환기 뉴스"},
	}
}
