package exchange

import (
	"sync"

	"github.com/minjae-dev/lurebait/internal/domain"
)

// conversationLocks serializes exchanges on the same conversation. Without
// it, two concurrent sends could interleave their history reads and produce
// turns with overlapping context; serialization is the safe default.
// Distinct conversations stay fully concurrent.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[domain.ConversationID]*sync.Mutex
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{
		locks: make(map[domain.ConversationID]*sync.Mutex),
	}
}

func (l *conversationLocks) get(id domain.ConversationID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks[id] == nil {
		l.locks[id] = &sync.Mutex{}
	}
	return l.locks[id]
}

// lock acquires the conversation's mutex and returns the unlock func.
func (l *conversationLocks) lock(id domain.ConversationID) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}
