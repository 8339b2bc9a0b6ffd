package memory

import (
	"fmt"
	"sync"

	"github.com/minjae-dev/lurebait/internal/domain"
)

type PersonaStore struct {
	mu       sync.RWMutex
	personas map[domain.PersonaID]*domain.Persona
}

func NewPersonaStore() *PersonaStore {
	return &PersonaStore{
		personas: make(map[domain.PersonaID]*domain.Persona),
	}
}

// SavePersona inserts or replaces a persona. Persona management proper lives
// outside this module; this is the seeding hook for dev and tests.
func (s *PersonaStore) SavePersona(p *domain.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *p
	s.personas[p.ID] = &stored
	return nil
}

func (s *PersonaStore) GetPersona(id domain.PersonaID) (*domain.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.personas[id]
	if !ok {
		return nil, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}

	out := *p
	return &out, nil
}
