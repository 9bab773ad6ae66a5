package store

import (
	"context"
	"sync"

	"vitalwatch/internal/dispatch"
)

// StaticResolver is an in-memory subject-to-provider mapping, used when no
// identity database is configured and in tests.
type StaticResolver struct {
	mu         sync.RWMutex
	recipients map[string]string
}

// NewStaticResolver creates a resolver seeded with the given mapping.
func NewStaticResolver(recipients map[string]string) *StaticResolver {
	cp := make(map[string]string, len(recipients))
	for k, v := range recipients {
		cp[k] = v
	}
	return &StaticResolver{recipients: cp}
}

// Assign sets the responsible provider for a subject.
func (r *StaticResolver) Assign(subjectID, recipientID string) {
	r.mu.Lock()
	r.recipients[subjectID] = recipientID
	r.mu.Unlock()
}

// ResolveRecipient returns the provider assigned to a subject.
func (r *StaticResolver) ResolveRecipient(ctx context.Context, subjectID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recipientID, ok := r.recipients[subjectID]
	if !ok || recipientID == "" {
		return "", dispatch.ErrNoRecipient
	}
	return recipientID, nil
}
