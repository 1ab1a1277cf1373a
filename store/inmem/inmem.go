// Package inmem provides an in-memory store.ConversationStore for tests and
// single-process demos.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"goa.design/convorun/message"
	"goa.design/convorun/store"
)

// Store is a process-local, goroutine-safe store.ConversationStore backed
// by maps. It is not durable across restarts.
type Store struct {
	mu        sync.RWMutex
	threads   map[string]message.ThreadMetadata
	histories map[string][]store.PersistedMessage
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		threads:   make(map[string]message.ThreadMetadata),
		histories: make(map[string][]store.PersistedMessage),
	}
}

// CreateThread implements store.ConversationStore.
func (s *Store) CreateThread(_ context.Context, threadID string, createdAt time.Time) (message.ThreadMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.threads[threadID]; ok {
		if existing.Status == message.ThreadStatusEnded {
			return message.ThreadMetadata{}, store.ErrThreadEnded
		}
		return cloneThread(existing), nil
	}
	t := message.ThreadMetadata{
		ThreadID:       threadID,
		Status:         message.ThreadStatusActive,
		CreatedAt:      createdAt,
		LastActivityAt: createdAt,
		Metadata:       message.NewMetadata(),
	}
	s.threads[threadID] = t
	return cloneThread(t), nil
}

// LoadThread implements store.ConversationStore.
func (s *Store) LoadThread(_ context.Context, threadID string) (message.ThreadMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[threadID]
	if !ok {
		return message.ThreadMetadata{}, store.ErrThreadNotFound
	}
	return cloneThread(t), nil
}

// EndThread implements store.ConversationStore.
func (s *Store) EndThread(_ context.Context, threadID string, endedAt time.Time) (message.ThreadMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return message.ThreadMetadata{}, store.ErrThreadNotFound
	}
	if t.Status != message.ThreadStatusEnded {
		t.Status = message.ThreadStatusEnded
		t.LastActivityAt = endedAt
		s.threads[threadID] = t
	}
	return cloneThread(t), nil
}

// SaveMetadata implements store.ConversationStore.
func (s *Store) SaveMetadata(_ context.Context, threadID string, metadata message.ThreadMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = cloneThread(metadata)
	return nil
}

// AppendMessages implements store.ConversationStore.
func (s *Store) AppendMessages(_ context.Context, threadID string, msgs []store.PersistedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]store.PersistedMessage, len(msgs))
	copy(cp, msgs)
	s.histories[threadID] = append(s.histories[threadID], cp...)
	if t, ok := s.threads[threadID]; ok && len(msgs) > 0 {
		t.LastActivityAt = msgs[len(msgs)-1].CreatedAt
		s.threads[threadID] = t
	}
	return nil
}

// LoadHistory implements store.ConversationStore.
func (s *Store) LoadHistory(_ context.Context, threadID string, afterOrderIdx int64) ([]store.PersistedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.histories[threadID]
	out := make([]store.PersistedMessage, 0, len(all))
	for _, pm := range all {
		if pm.MessageOrderIdx > afterOrderIdx {
			out = append(out, pm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MessageOrderIdx < out[j].MessageOrderIdx })
	return out, nil
}

// Reset clears all stored state, for use between test cases.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[string]message.ThreadMetadata)
	s.histories = make(map[string][]store.PersistedMessage)
}

func cloneThread(t message.ThreadMetadata) message.ThreadMetadata {
	out := t
	out.Metadata = t.Metadata.Clone()
	if t.SessionMappings != nil {
		out.SessionMappings = make(map[string]string, len(t.SessionMappings))
		for k, v := range t.SessionMappings {
			out.SessionMappings[k] = v
		}
	}
	return out
}
