package memory

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/minjae-dev/lurebait/internal/domain"
)

type ScenarioStore struct {
	mu         sync.RWMutex
	categories map[string]*domain.ScenarioCategory
	scenarios  map[domain.ScenarioID]*domain.Scenario
	order      []domain.ScenarioID // insertion order, keeps random picks reproducible under seeding
}

func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{
		categories: make(map[string]*domain.ScenarioCategory),
		scenarios:  make(map[domain.ScenarioID]*domain.Scenario),
	}
}

func (s *ScenarioStore) SeedCategories(categories []*domain.ScenarioCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cat := range categories {
		if _, exists := s.categories[cat.Code]; exists {
			continue
		}
		stored := *cat
		s.categories[cat.Code] = &stored
	}
	return nil
}

func (s *ScenarioStore) GetCategory(code string) (*domain.ScenarioCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.categories[code]
	if !ok {
		return nil, fmt.Errorf("scenario category %q: %w", code, domain.ErrNotFound)
	}

	out := *cat
	return &out, nil
}

func (s *ScenarioStore) ListCategories() ([]*domain.ScenarioCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ScenarioCategory, 0, len(s.categories))
	for _, cat := range s.categories {
		cp := *cat
		out = append(out, &cp)
	}
	return out, nil
}

func (s *ScenarioStore) CreateScenario(sc *domain.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.scenarios[sc.ID]; exists {
		return fmt.Errorf("scenario %s already exists", sc.ID)
	}
	if _, ok := s.categories[sc.CategoryCode]; !ok {
		return fmt.Errorf("scenario category %q: %w", sc.CategoryCode, domain.ErrNotFound)
	}

	stored := *sc
	s.scenarios[sc.ID] = &stored
	s.order = append(s.order, sc.ID)
	return nil
}

func (s *ScenarioStore) GetScenario(id domain.ScenarioID) (*domain.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", id, domain.ErrNotFound)
	}

	out := *sc
	return &out, nil
}

func (s *ScenarioStore) RandomScenario(categoryCode string) (*domain.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []*domain.Scenario
	for _, id := range s.order {
		sc := s.scenarios[id]
		if categoryCode == "" || sc.CategoryCode == categoryCode {
			matching = append(matching, sc)
		}
	}

	if len(matching) == 0 {
		return nil, nil
	}

	out := *matching[rand.IntN(len(matching))]
	return &out, nil
}
