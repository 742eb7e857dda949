package memory

import (
	"context"
	"sync"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

type Messages struct {
	mu  sync.RWMutex
	log []models.Message
}

func NewMessages() *Messages {
	return &Messages{}
}

func (m *Messages) Append(ctx context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = append(m.log, *message)
	return nil
}

func (m *Messages) List(ctx context.Context) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append(make([]models.Message, 0, len(m.log)), m.log...), nil
}
