package store

import (
	"context"
	"sync"

	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ReplyStore and
// InstructionStore interfaces, used for development and tests
type MemoryStore struct {
	replies      map[string]*core.PersistedReply
	instructions map[string]map[string]any
	mu           sync.RWMutex
	logger       *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		replies:      make(map[string]*core.PersistedReply),
		instructions: make(map[string]map[string]any),
		logger:       logger,
	}
}

func replyKey(merchantID, emailID string) string {
	return merchantID + "/" + emailID
}

// Set upserts a reply keyed by (merchant_id, email_id)
func (s *MemoryStore) Set(ctx context.Context, reply *core.PersistedReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replies[replyKey(reply.MerchantID, reply.EmailID)] = reply
	return nil
}

// Get retrieves a reply, returning (nil, nil) when absent
func (s *MemoryStore) Get(ctx context.Context, merchantID, emailID string) (*core.PersistedReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.replies[replyKey(merchantID, emailID)], nil
}

// GetInstructions returns a merchant's configuration, or an empty map
// when none is stored
func (s *MemoryStore) GetInstructions(ctx context.Context, merchantID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if instructions, ok := s.instructions[merchantID]; ok {
		return instructions, nil
	}
	return map[string]any{}, nil
}

// SetInstructions stores a merchant's configuration
func (s *MemoryStore) SetInstructions(ctx context.Context, merchantID string, instructions map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instructions[merchantID] = instructions
	return nil
}
