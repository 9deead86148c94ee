package notifier

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/habitual/internal/models"
)

// MemoryCenter is an in-process Backend. It never delivers anything; it is
// used for previews and by tests that need to inspect the pending set.
type MemoryCenter struct {
	mu      sync.Mutex
	granted bool
	pending map[string]models.NotificationRequest
	now     func() time.Time
}

func NewMemoryCenter(granted bool) *MemoryCenter {
	return &MemoryCenter{
		granted: granted,
		pending: make(map[string]models.NotificationRequest),
		now:     time.Now,
	}
}

// SetGranted changes the permission answer.
func (m *MemoryCenter) SetGranted(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted = granted
}

func (m *MemoryCenter) RequestPermission(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted, nil
}

func (m *MemoryCenter) AddRequest(ctx context.Context, req models.NotificationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = m.now()
	}
	m.pending[req.ID] = cloneRequest(req)
	return nil
}

func (m *MemoryCenter) RemoveRequests(ctx context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.pending, id)
	}
	return nil
}

func (m *MemoryCenter) RemoveAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = make(map[string]models.NotificationRequest)
	return nil
}

// PendingRequests returns the pending set ordered by id.
func (m *MemoryCenter) PendingRequests(ctx context.Context) ([]models.NotificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.NotificationRequest, 0, len(m.pending))
	for _, req := range m.pending {
		out = append(out, cloneRequest(req))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneRequest(req models.NotificationRequest) models.NotificationRequest {
	if req.UserInfo != nil {
		info := make(map[string]string, len(req.UserInfo))
		for k, v := range req.UserInfo {
			info[k] = v
		}
		req.UserInfo = info
	}
	return req
}
