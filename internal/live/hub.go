// Package live рассылает одобренные комментарии подписчикам поста через websocket.
package live

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
)

// размер очереди одного подписчика
const queueSize = 10

// Hub хранит каналы подписчиков на комментарии.
type Hub struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs   map[string]map[string]chan *domain.Comment
	closed bool
}

var _ events.Publisher = (*Hub)(nil)

// NewHub - конструктор хаба.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]chan *domain.Comment),
	}
}

// Subscribe регистрирует нового подписчика на комментарии поста.
// Канал закрывается при Unsubscribe или Close.
func (h *Hub) Subscribe(postID string) (string, <-chan *domain.Comment) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *domain.Comment, queueSize)
	if h.closed {
		close(ch)
		return id, ch
	}

	if h.subs[postID] == nil {
		h.subs[postID] = make(map[string]chan *domain.Comment)
	}
	h.subs[postID][id] = ch

	return id, ch
}

// Unsubscribe удаляет подписчика и закрывает его канал.
func (h *Hub) Unsubscribe(postID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[postID][id]
	if !ok {
		return
	}
	close(ch)
	delete(h.subs[postID], id)
	if len(h.subs[postID]) == 0 {
		delete(h.subs, postID)
	}
}

// Subscribers возвращает число подписчиков поста.
func (h *Hub) Subscribers(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[postID])
}

// Publish рассылает одобренный комментарий подписчикам его поста.
// Медленные подписчики пропускают сообщение.
func (h *Hub) Publish(_ context.Context, event events.Event) error {
	if event.Comment == nil || event.Comment.Status != domain.CommentApproved {
		return nil
	}
	switch event.Type {
	case events.CommentCreated, events.CommentStatusChanged:
	default:
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[event.Comment.PostID] {
		select {
		case ch <- event.Comment:
		default:
		}
	}
	return nil
}

// Close закрывает все каналы, активные соединения завершаются.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for postID, subs := range h.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(h.subs, postID)
	}
	h.closed = true
}
