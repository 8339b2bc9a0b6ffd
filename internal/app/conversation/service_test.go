package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/lurebait/internal/adapters/storage/memory"
	"github.com/minjae-dev/lurebait/internal/domain"
)

type fakeReplyClient struct {
	mu         sync.Mutex
	disabled   bool
	draft      *domain.ScenarioDraft
	synthErr   error
	synthCalls int
}

func (f *fakeReplyClient) Available() bool { return !f.disabled }

func (f *fakeReplyClient) Respond(ctx context.Context, req domain.ReplyRequest) (*domain.StructuredReply, []domain.TranscriptEntry, error) {
	return nil, nil, errors.New("not used in lifecycle tests")
}

func (f *fakeReplyClient) SynthesizeScenario(ctx context.Context, category *domain.ScenarioCategory) (*domain.ScenarioDraft, error) {
	f.mu.Lock()
	f.synthCalls++
	f.mu.Unlock()
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	if f.draft != nil {
		return f.draft, nil
	}
	return &domain.ScenarioDraft{
		Title: "긴급 대출 안내",
		Body:  category.Description + "를 미끼로 송금을 유도",
	}, nil
}

type failingObjects struct {
	*memory.ObjectStore
	mu      sync.Mutex
	deletes int
	failKey string
}

func (f *failingObjects) Delete(key string) error {
	f.mu.Lock()
	f.deletes++
	f.mu.Unlock()
	if key == f.failKey {
		return errors.New("object gone sideways")
	}
	return f.ObjectStore.Delete(key)
}

type fixture struct {
	svc       *Service
	replies   *fakeReplyClient
	convs     *memory.ConversationStore
	msgs      *memory.MessageStore
	scenarios *memory.ScenarioStore
	objects   *failingObjects
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	replies := &fakeReplyClient{}
	convs := memory.NewConversationStore()
	msgs := memory.NewMessageStore()
	scenarios := memory.NewScenarioStore()
	personas := memory.NewPersonaStore()
	objects := &failingObjects{ObjectStore: memory.NewObjectStore()}

	require.NoError(t, scenarios.SeedCategories(domain.SeedCategories()))
	require.NoError(t, personas.SavePersona(&domain.Persona{
		ID:                "detective",
		Name:              "탐정",
		SystemInstruction: "너는 피싱 판별 훈련 상대야.",
		OpeningLine:       "안녕하세요, 탐정입니다",
	}))
	require.NoError(t, personas.SavePersona(&domain.Persona{
		ID:                "silent",
		Name:              "무전기",
		SystemInstruction: "말을 아끼는 역할.",
	}))

	svc := NewService(replies, convs, msgs, personas, scenarios, objects)

	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Millisecond)
		return clock
	}

	return &fixture{
		svc:       svc,
		replies:   replies,
		convs:     convs,
		msgs:      msgs,
		scenarios: scenarios,
		objects:   objects,
	}
}

func start(t *testing.T, f *fixture, in StartConversationInput) *StartConversationOutput {
	t.Helper()
	out, err := f.svc.StartConversation(context.Background(), in)
	require.NoError(t, err)
	return out
}

func TestStartConversationUnknownPersona(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartConversation(context.Background(), StartConversationInput{
		PersonaID:   "nobody",
		RequestorID: "u1",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartConversationSeedsOpening(t *testing.T) {
	f := newFixture(t)

	out := start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Title:       "첫 훈련",
	})

	require.NotNil(t, out.Opening)
	require.Equal(t, domain.RoleAI, out.Opening.Sender)
	require.Equal(t, "안녕하세요, 탐정입니다", out.Opening.Content)
	require.Zero(t, out.Opening.TokenUsage)

	msgs, err := f.msgs.ListMessages(out.Conversation.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.True(t, out.Conversation.LastMessageAt.Equal(out.Opening.CreatedAt))

	loaded, err := f.convs.GetConversation(out.Conversation.ID)
	require.NoError(t, err)
	require.True(t, loaded.LastMessageAt.Equal(out.Opening.CreatedAt))
}

func TestStartConversationWithoutOpeningLine(t *testing.T) {
	f := newFixture(t)

	out := start(t, f, StartConversationInput{
		PersonaID:   "silent",
		RequestorID: "u1",
	})

	require.Nil(t, out.Opening)
	msgs, err := f.msgs.ListMessages(out.Conversation.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestStartConversationPolicyAnyWithEmptyPool(t *testing.T) {
	f := newFixture(t)

	out := start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioAny},
	})

	require.Empty(t, out.Conversation.ScenarioID)
	require.Zero(t, f.replies.synthCalls, "any mode never synthesizes")
}

func TestStartConversationPolicyAnyPicksStored(t *testing.T) {
	f := newFixture(t)
	sc := &domain.Scenario{ID: "s1", CategoryCode: "LoanScam", Title: "저금리 대출", Body: "본문"}
	require.NoError(t, f.scenarios.CreateScenario(sc))

	out := start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioAny},
	})

	require.Equal(t, sc.ID, out.Conversation.ScenarioID)

	loaded, err := f.convs.GetConversation(out.Conversation.ID)
	require.NoError(t, err)
	require.Equal(t, sc.ID, loaded.ScenarioID)
}

func TestStartConversationCategoryReusesStored(t *testing.T) {
	f := newFixture(t)
	sc := &domain.Scenario{ID: "s1", CategoryCode: "LoanScam", Title: "저금리 대출", Body: "본문"}
	require.NoError(t, f.scenarios.CreateScenario(sc))

	out := start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioByCategory, CategoryCode: "LoanScam"},
	})

	require.Equal(t, sc.ID, out.Conversation.ScenarioID)
	require.Zero(t, f.replies.synthCalls)
}

func TestStartConversationCategorySynthesizesWhenEmpty(t *testing.T) {
	f := newFixture(t)

	out := start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioByCategory, CategoryCode: "LoanScam"},
	})

	require.Equal(t, 1, f.replies.synthCalls)
	require.NotEmpty(t, out.Conversation.ScenarioID)

	sc, err := f.scenarios.GetScenario(out.Conversation.ScenarioID)
	require.NoError(t, err)
	require.Equal(t, "LoanScam", sc.CategoryCode)
	require.Equal(t, "긴급 대출 안내", sc.Title)

	// The fabricated scenario is persisted, so a repeat start reuses it.
	start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioByCategory, CategoryCode: "LoanScam"},
	})
	require.Equal(t, 1, f.replies.synthCalls)
}

func TestStartConversationForceFreshAlwaysSynthesizes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.scenarios.CreateScenario(&domain.Scenario{
		ID: "stored", CategoryCode: "LoanScam", Title: "기존", Body: "본문",
	}))

	out := start(t, f, StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioForceFresh, CategoryCode: "LoanScam"},
	})

	require.Equal(t, 1, f.replies.synthCalls)
	require.NotEqual(t, domain.ScenarioID("stored"), out.Conversation.ScenarioID)
}

func TestStartConversationUnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartConversation(context.Background(), StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioByCategory, CategoryCode: "NoSuchThing"},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartConversationMissingCategoryCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartConversation(context.Background(), StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioForceFresh},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStartConversationSynthesisFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	f.replies.synthErr = fmt.Errorf("%w: provider said no", domain.ErrGenerationFailed)

	_, err := f.svc.StartConversation(context.Background(), StartConversationInput{
		PersonaID:   "detective",
		RequestorID: "u1",
		Policy:      domain.ScenarioPolicy{Mode: domain.ScenarioForceFresh, CategoryCode: "LoanScam"},
	})
	require.ErrorIs(t, err, domain.ErrGenerationFailed)

	convs, lerr := f.convs.ListConversationsByUser("u1", 0)
	require.NoError(t, lerr)
	require.Empty(t, convs, "no conversation row survives a failed synthesis")

	sc, serr := f.scenarios.RandomScenario("LoanScam")
	require.NoError(t, serr)
	require.Nil(t, sc)
}

func TestGetConversationScoping(t *testing.T) {
	f := newFixture(t)
	out := start(t, f, StartConversationInput{PersonaID: "detective", RequestorID: "u1"})

	_, err := f.svc.GetConversation(context.Background(), out.Conversation.ID, "u2", false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.GetConversation(context.Background(), out.Conversation.ID, "u2", true)
	require.NoError(t, err)
	require.Equal(t, out.Conversation.ID, got.ID)
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	a := start(t, f, StartConversationInput{PersonaID: "detective", RequestorID: "u1"})
	b := start(t, f, StartConversationInput{PersonaID: "detective", RequestorID: "u1"})
	start(t, f, StartConversationInput{PersonaID: "detective", RequestorID: "u2"})

	list, err := f.svc.ListConversations(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, b.Conversation.ID, list[0].ID)
	require.Equal(t, a.Conversation.ID, list[1].ID)
}

func TestDeleteConversationCascades(t *testing.T) {
	f := newFixture(t)
	out := start(t, f, StartConversationInput{PersonaID: "detective", RequestorID: "u1"})
	id := out.Conversation.ID

	require.NoError(t, f.objects.ObjectStore.Put("messages/k1", []byte{1}, "image/png"))
	require.NoError(t, f.msgs.AppendMessage(&domain.Message{
		ID:             "m1",
		ConversationID: id,
		Sender:         domain.RoleUser,
		AttachmentKey:  "messages/k1",
		CreatedAt:      time.Now(),
	}))
	require.NoError(t, f.msgs.AppendMessage(&domain.Message{
		ID:             "m2",
		ConversationID: id,
		Sender:         domain.RoleUser,
		AttachmentKey:  "messages/k2",
		CreatedAt:      time.Now(),
	}))
	f.objects.failKey = "messages/k2"

	require.NoError(t, f.svc.DeleteConversation(context.Background(), id, "u1", false))

	// A failing blob delete does not block the cascade.
	require.Equal(t, 2, f.objects.deletes)

	_, err := f.convs.GetConversation(id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	msgs, err := f.msgs.ListMessages(id)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestDeleteConversationScopedToOwner(t *testing.T) {
	f := newFixture(t)
	out := start(t, f, StartConversationInput{PersonaID: "detective", RequestorID: "u1"})

	err := f.svc.DeleteConversation(context.Background(), out.Conversation.ID, "u2", false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.convs.GetConversation(out.Conversation.ID)
	require.NoError(t, err)
}
