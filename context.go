package keysmith

import (
	"context"
	"sync"
)

type contextKey int

const (
	ctxKeyTenantID contextKey = iota
	ctxKeyMessages
)

// WithTenant returns a context with the given tenant ID.
// Use this for standalone mode (without Forge).
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

func tenantIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyTenantID).(string)
	if !ok {
		return ""
	}
	return v
}

// Messages collects ceiling-validation failures. Attach one with
// WithMessages before calling ValidateCeiling or DelegateClient to see
// why a request was rejected; without one, failures are still counted
// in the boolean result but the detail is discarded.
type Messages struct {
	mu    sync.Mutex
	items []Message
}

// Add appends a failure message.
func (m *Messages) Add(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, msg)
}

// Items returns the collected messages in the order they were added.
func (m *Messages) Items() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.items))
	copy(out, m.items)
	return out
}

// WithMessages returns a context carrying the given message sink.
func WithMessages(ctx context.Context, m *Messages) context.Context {
	return context.WithValue(ctx, ctxKeyMessages, m)
}

// MessagesFrom returns the message sink attached to the context, if any.
func MessagesFrom(ctx context.Context) (*Messages, bool) {
	m, ok := ctx.Value(ctxKeyMessages).(*Messages)
	return m, ok
}

// addMessage records a failure in the context sink when one is attached.
func addMessage(ctx context.Context, msg Message) {
	if m, ok := MessagesFrom(ctx); ok {
		m.Add(msg)
	}
}
