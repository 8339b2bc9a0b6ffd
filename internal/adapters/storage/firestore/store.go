package firestore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/minjae-dev/lurebait/internal/domain"
)

// Store implements the persona, conversation, message and scenario
// repositories on Firestore. One client, four collections:
//
//	personas/{id}
//	conversations/{id}
//	conversations/{id}/messages/{id}
//	scenario_categories/{code}
//	scenarios/{id}
type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) conversationsCol() *firestore.CollectionRef {
	return s.client.Collection("conversations")
}

func (s *Store) conversationDoc(id domain.ConversationID) *firestore.DocumentRef {
	return s.conversationsCol().Doc(string(id))
}

func (s *Store) messagesCol(conversationID domain.ConversationID) *firestore.CollectionRef {
	return s.conversationDoc(conversationID).Collection("messages")
}

func (s *Store) personaDoc(id domain.PersonaID) *firestore.DocumentRef {
	return s.client.Collection("personas").Doc(string(id))
}

func (s *Store) categoriesCol() *firestore.CollectionRef {
	return s.client.Collection("scenario_categories")
}

func (s *Store) scenariosCol() *firestore.CollectionRef {
	return s.client.Collection("scenarios")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type conversationDoc struct {
	UserID        string    `firestore:"user_id"`
	PersonaID     string    `firestore:"persona_id"`
	Title         string    `firestore:"title"`
	ScenarioID    string    `firestore:"scenario_id"`
	CreatedAt     time.Time `firestore:"created_at"`
	LastMessageAt time.Time `firestore:"last_message_at"`
}

type messageDoc struct {
	ConversationID string    `firestore:"conversation_id"`
	Sender         string    `firestore:"sender"`
	Content        string    `firestore:"content"`
	AttachmentKey  string    `firestore:"attachment_key"`
	TokenUsage     int32     `firestore:"token_usage"`
	CreatedAt      time.Time `firestore:"created_at"`
}

type personaDoc struct {
	Name              string `firestore:"name"`
	SystemInstruction string `firestore:"system_instruction"`
	OpeningLine       string `firestore:"opening_line"`
	Public            bool   `firestore:"public"`
	OwnerID           string `firestore:"owner_id"`
}

type categoryDoc struct {
	Description string `firestore:"description"`
}

type scenarioDoc struct {
	CategoryCode string    `firestore:"category_code"`
	Title        string    `firestore:"title"`
	Body         string    `firestore:"body"`
	ReferenceURL string    `firestore:"reference_url"`
	CreatedAt    time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// ConversationStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateConversation(conv *domain.Conversation) error {
	ctx := context.Background()

	doc := conversationDoc{
		UserID:        string(conv.UserID),
		PersonaID:     string(conv.PersonaID),
		Title:         conv.Title,
		ScenarioID:    string(conv.ScenarioID),
		CreatedAt:     conv.CreatedAt,
		LastMessageAt: conv.LastMessageAt,
	}

	if _, err := s.conversationDoc(conv.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateConversation: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(id domain.ConversationID) (*domain.Conversation, error) {
	ctx := context.Background()

	snap, err := s.conversationDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetConversation: %w", err)
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetConversation decode: %w", err)
	}

	return &domain.Conversation{
		ID:            id,
		UserID:        domain.UserID(doc.UserID),
		PersonaID:     domain.PersonaID(doc.PersonaID),
		Title:         doc.Title,
		ScenarioID:    domain.ScenarioID(doc.ScenarioID),
		CreatedAt:     doc.CreatedAt,
		LastMessageAt: doc.LastMessageAt,
	}, nil
}

func (s *Store) GetConversationForUser(id domain.ConversationID, userID domain.UserID) (*domain.Conversation, error) {
	conv, err := s.GetConversation(id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return conv, nil
}

func (s *Store) ListConversationsByUser(userID domain.UserID, limit int) ([]*domain.Conversation, error) {
	ctx := context.Background()

	q := s.conversationsCol().
		Where("user_id", "==", string(userID)).
		OrderBy("last_message_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Conversation
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListConversationsByUser: %w", err)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode conversationDoc: %w", err)
		}

		out = append(out, &domain.Conversation{
			ID:            domain.ConversationID(snap.Ref.ID),
			UserID:        domain.UserID(doc.UserID),
			PersonaID:     domain.PersonaID(doc.PersonaID),
			Title:         doc.Title,
			ScenarioID:    domain.ScenarioID(doc.ScenarioID),
			CreatedAt:     doc.CreatedAt,
			LastMessageAt: doc.LastMessageAt,
		})
	}
	return out, nil
}

func (s *Store) BindScenario(id domain.ConversationID, scenarioID domain.ScenarioID) error {
	ctx := context.Background()

	_, err := s.conversationDoc(id).Update(ctx, []firestore.Update{
		{Path: "scenario_id", Value: string(scenarioID)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("firestore BindScenario: %w", err)
	}
	return nil
}

func (s *Store) TouchLastActivity(id domain.ConversationID, at domain.Timestamp) error {
	ctx := context.Background()

	_, err := s.conversationDoc(id).Update(ctx, []firestore.Update{
		{Path: "last_message_at", Value: at},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("firestore TouchLastActivity: %w", err)
	}
	return nil
}

func (s *Store) DeleteConversation(id domain.ConversationID) error {
	ctx := context.Background()

	if _, err := s.conversationDoc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteConversation: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	ctx := context.Background()

	doc := messageDoc{
		ConversationID: string(msg.ConversationID),
		Sender:         string(msg.Sender),
		Content:        msg.Content,
		AttachmentKey:  msg.AttachmentKey,
		TokenUsage:     msg.TokenUsage,
		CreatedAt:      msg.CreatedAt,
	}

	if _, err := s.messagesCol(msg.ConversationID).Doc(string(msg.ID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(conversationID domain.ConversationID) ([]*domain.Message, error) {
	ctx := context.Background()

	// Full thread, creation order. The model needs the whole history, so
	// there is intentionally no limit here.
	iter := s.messagesCol(conversationID).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:             domain.MessageID(snap.Ref.ID),
			ConversationID: conversationID,
			Sender:         domain.Role(doc.Sender),
			Content:        doc.Content,
			AttachmentKey:  doc.AttachmentKey,
			TokenUsage:     doc.TokenUsage,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) DeleteMessagesByConversation(conversationID domain.ConversationID) error {
	ctx := context.Background()

	iter := s.messagesCol(conversationID).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore DeleteMessagesByConversation: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore DeleteMessagesByConversation: %w", err)
		}
	}
	return nil
}

// ─────────────────────────────────────────
// PersonaStore implementation
// ─────────────────────────────────────────

func (s *Store) GetPersona(id domain.PersonaID) (*domain.Persona, error) {
	ctx := context.Background()

	snap, err := s.personaDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetPersona: %w", err)
	}

	var doc personaDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetPersona decode: %w", err)
	}

	return &domain.Persona{
		ID:                id,
		Name:              doc.Name,
		SystemInstruction: doc.SystemInstruction,
		OpeningLine:       doc.OpeningLine,
		Public:            doc.Public,
		OwnerID:           domain.UserID(doc.OwnerID),
	}, nil
}

// ─────────────────────────────────────────
// ScenarioStore implementation
// ─────────────────────────────────────────

func (s *Store) SeedCategories(categories []*domain.ScenarioCategory) error {
	ctx := context.Background()

	for _, cat := range categories {
		_, err := s.categoriesCol().Doc(cat.Code).Create(ctx, categoryDoc{Description: cat.Description})
		if err != nil {
			// Seeding is idempotent: categories already present stay as is.
			if status.Code(err) == codes.AlreadyExists {
				continue
			}
			return fmt.Errorf("firestore SeedCategories %s: %w", cat.Code, err)
		}
	}
	return nil
}

func (s *Store) GetCategory(code string) (*domain.ScenarioCategory, error) {
	ctx := context.Background()

	snap, err := s.categoriesCol().Doc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("scenario category %q: %w", code, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetCategory: %w", err)
	}

	var doc categoryDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetCategory decode: %w", err)
	}

	return &domain.ScenarioCategory{Code: code, Description: doc.Description}, nil
}

func (s *Store) ListCategories() ([]*domain.ScenarioCategory, error) {
	ctx := context.Background()

	iter := s.categoriesCol().Documents(ctx)
	defer iter.Stop()

	var out []*domain.ScenarioCategory
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListCategories: %w", err)
		}

		var doc categoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode categoryDoc: %w", err)
		}
		out = append(out, &domain.ScenarioCategory{Code: snap.Ref.ID, Description: doc.Description})
	}
	return out, nil
}

func (s *Store) CreateScenario(sc *domain.Scenario) error {
	ctx := context.Background()

	doc := scenarioDoc{
		CategoryCode: sc.CategoryCode,
		Title:        sc.Title,
		Body:         sc.Body,
		ReferenceURL: sc.ReferenceURL,
		CreatedAt:    sc.CreatedAt,
	}

	if _, err := s.scenariosCol().Doc(string(sc.ID)).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateScenario: %w", err)
	}
	return nil
}

func (s *Store) GetScenario(id domain.ScenarioID) (*domain.Scenario, error) {
	ctx := context.Background()

	snap, err := s.scenariosCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("scenario %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetScenario: %w", err)
	}

	var doc scenarioDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetScenario decode: %w", err)
	}

	return &domain.Scenario{
		ID:           id,
		CategoryCode: doc.CategoryCode,
		Title:        doc.Title,
		Body:         doc.Body,
		ReferenceURL: doc.ReferenceURL,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *Store) RandomScenario(categoryCode string) (*domain.Scenario, error) {
	ctx := context.Background()

	q := s.scenariosCol().Query
	if categoryCode != "" {
		q = q.Where("category_code", "==", categoryCode)
	}

	// The scenario pool is curated training data, small by construction, so
	// loading the matching set and picking locally is fine.
	iter := q.Documents(ctx)
	defer iter.Stop()

	var ids []string
	var docs []scenarioDoc
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore RandomScenario: %w", err)
		}

		var doc scenarioDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode scenarioDoc: %w", err)
		}
		ids = append(ids, snap.Ref.ID)
		docs = append(docs, doc)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	i := rand.IntN(len(ids))
	return &domain.Scenario{
		ID:           domain.ScenarioID(ids[i]),
		CategoryCode: docs[i].CategoryCode,
		Title:        docs[i].Title,
		Body:         docs[i].Body,
		ReferenceURL: docs[i].ReferenceURL,
		CreatedAt:    docs[i].CreatedAt,
	}, nil
}
