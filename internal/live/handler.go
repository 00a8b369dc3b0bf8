package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v2"

	"github.com/UkralStul/blog-service/internal/domain"
)

const (
	// клиенту писать нечего, читаются только pong и close
	maxMessageSize = 4096

	writeTimeout = 10 * time.Second

	// как KeepAlivePingInterval в старом websocket транспорте
	pingInterval = 10 * time.Second

	receiveTimeout = 3 * pingInterval
)

var errDone = errors.New("live: connection done")

// PostLookup проверяет, что пост существует.
type PostLookup interface {
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
}

// Handler отдаёт поток одобренных комментариев поста по websocket.
type Handler struct {
	hub      *Hub
	posts    PostLookup
	fail     func(w http.ResponseWriter, r *http.Request, err error)
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewHandler создает обработчик. fail пишет ошибку до апгрейда соединения.
func NewHandler(hub *Hub, posts PostLookup, fail func(w http.ResponseWriter, r *http.Request, err error), log logrus.FieldLogger) *Handler {
	return &Handler{
		hub:   hub,
		posts: posts,
		fail:  fail,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if _, err := h.posts.GetPostByID(r.Context(), postID); err != nil {
		h.fail(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// апгрейдер уже ответил ошибкой
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	subID, queue := h.hub.Subscribe(postID)
	defer h.hub.Unsubscribe(postID, subID)

	log := h.log.WithFields(logrus.Fields{"post_id": postID, "subscriber": subID})
	log.Debug("live subscriber connected")

	if err := serve(conn, queue); err != nil {
		log.WithError(err).Debug("live subscriber dropped")
		return
	}
	log.Debug("live subscriber disconnected")
}

// serve гоняет чтение и запись в одной tomb: завершение любой стороны закрывает обе.
func serve(conn *websocket.Conn, queue <-chan *domain.Comment) error {
	var t tomb.Tomb

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(receiveTimeout))
	})

	t.Go(func() error {
		for {
			if err := conn.SetReadDeadline(time.Now().Add(receiveTimeout)); err != nil {
				return err
			}
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return errDone
				}
				return err
			}
		}
	})

	t.Go(func() error {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-t.Dying():
				return nil
			case comment, ok := <-queue:
				if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
					return err
				}
				if !ok {
					msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
					_ = conn.WriteMessage(websocket.CloseMessage, msg)
					return errDone
				}
				if err := conn.WriteJSON(comment); err != nil {
					return err
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
					return err
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return err
				}
			}
		}
	})

	<-t.Dying()
	_ = conn.Close()

	if err := t.Wait(); err != nil && !errors.Is(err, errDone) {
		return err
	}
	return nil
}
