package main

import (
	"context"
	"log"
	"net/http"

	httpadapter "github.com/minjae-dev/lurebait/internal/adapters/http"
	"github.com/minjae-dev/lurebait/internal/adapters/llm"
	firestorestore "github.com/minjae-dev/lurebait/internal/adapters/storage/firestore"
	memstore "github.com/minjae-dev/lurebait/internal/adapters/storage/memory"
	s3store "github.com/minjae-dev/lurebait/internal/adapters/storage/s3"
	"github.com/minjae-dev/lurebait/internal/app/conversation"
	"github.com/minjae-dev/lurebait/internal/app/exchange"
	"github.com/minjae-dev/lurebait/internal/config"
	"github.com/minjae-dev/lurebait/internal/domain"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// LLM: scripted mock or Gemini
	var replies domain.ReplyClient
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK reply client")
		replies = llm.NewMockLLM()
	} else {
		log.Printf("[LLM] Using Gemini reply client (model=%s)", cfg.ModelName)
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
		replies = gemini
	}

	// Storage: Firestore or Memory
	var (
		conversations domain.ConversationStore
		messages      domain.MessageStore
		personas      domain.PersonaStore
		scenarios     domain.ScenarioStore
	)

	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}

		// 1 store, implements all repository interfaces
		conversations = fsStore
		messages = fsStore
		personas = fsStore
		scenarios = fsStore

	default:
		log.Println("[STORE] Using in-memory storage")
		conversations = memstore.NewConversationStore()
		messages = memstore.NewMessageStore()
		scenarios = memstore.NewScenarioStore()

		personaStore := memstore.NewPersonaStore()
		seedDevPersona(personaStore)
		personas = personaStore
	}

	if err := scenarios.SeedCategories(domain.SeedCategories()); err != nil {
		log.Fatalf("error seeding scenario categories: %v", err)
	}

	// Attachment object storage: S3 or Memory
	var objects domain.ObjectStore
	switch cfg.ObjectBackend {
	case "s3":
		log.Printf("[OBJECTS] Using S3 object storage (bucket=%s)", cfg.S3Bucket)
		s3Store, err := s3store.NewObjectStore(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			log.Fatalf("error initializing S3 object store: %v", err)
		}
		objects = s3Store
	default:
		log.Println("[OBJECTS] Using in-memory object storage")
		objects = memstore.NewObjectStore()
	}

	convSvc := conversation.NewService(replies, conversations, messages, personas, scenarios, objects)
	exchSvc := exchange.NewService(replies, conversations, messages, personas, scenarios, objects)

	handler := httpadapter.NewServer(convSvc, exchSvc)

	addr := ":" + cfg.Port
	log.Println("lurebait API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

// seedDevPersona gives the in-memory backend one persona to talk to, since
// persona management lives outside this service.
func seedDevPersona(store *memstore.PersonaStore) {
	_ = store.SavePersona(&domain.Persona{
		ID:                "detective",
		Name:              "탐정",
		SystemInstruction: "너는 사용자의 피싱 판별 능력을 훈련시키는 역할극 상대야. 배정된 시나리오가 있으면 그 역할을 자연스럽게 연기해.",
		OpeningLine:       "안녕하세요, 탐정입니다",
		Public:            true,
	})
}
