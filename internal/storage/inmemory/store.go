package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/query"
	"github.com/UkralStul/blog-service/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
// Наружу всегда отдаются копии, внутренние объекты не покидают хранилище.
type Store struct {
	mu               sync.RWMutex
	posts            map[string]*domain.Post
	comments         map[string]*domain.Comment
	commentsByPost   map[string][]string // map[postID][]commentID (только корневые)
	commentsByParent map[string][]string // map[parentID][]commentID
	users            map[string]*domain.User
	last             time.Time
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:            make(map[string]*domain.Post),
		comments:         make(map[string]*domain.Comment),
		commentsByPost:   make(map[string][]string),
		commentsByParent: make(map[string][]string),
		users:            make(map[string]*domain.User),
	}
}

// now возвращает строго возрастающее время, чтобы порядок по createdAt был однозначным.
// Вызывать под s.mu.Lock.
func (s *Store) now() time.Time {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clonePost(post)
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	if stored.Status == "" {
		stored.Status = domain.PostPublished
	}
	if stored.Tags == nil {
		stored.Tags = pq.StringArray{}
	}
	s.posts[stored.ID] = stored

	return clonePost(stored), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, domain.E(domain.ErrNotFound, "Post not found")
	}
	return clonePost(post), nil
}

func (s *Store) ListPosts(ctx context.Context, pred query.Predicate, page query.Page) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchPosts(pred)
	sortPosts(matched, page.SortBy, page.Desc)

	start := page.Skip
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []*domain.Post{}, nil
	}
	end := len(matched)
	if page.Limit > 0 && page.Limit < end-start {
		end = start + page.Limit
	}

	result := make([]*domain.Post, 0, end-start)
	for _, p := range matched[start:end] {
		result = append(result, clonePost(p))
	}
	return result, nil
}

func (s *Store) CountPosts(ctx context.Context, pred query.Predicate) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchPosts(pred))), nil
}

func (s *Store) ViewPost(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, domain.E(domain.ErrNotFound, "Post not found")
	}
	post.Views++

	result := clonePost(post)

	roots := s.collect(s.commentsByPost[id], domain.CommentApproved)
	sortComments(roots, true)
	for _, c := range roots {
		s.attachReplies(c, storage.ThreadDepth-1)
	}
	result.Comments = roots

	var count int64
	for _, c := range s.comments {
		if c.PostID == id {
			count++
		}
	}
	result.CommentCount = &count

	return result, nil
}

// attachReplies достраивает одобренные ответы на depth уровней вниз, старые первыми.
func (s *Store) attachReplies(c *domain.Comment, depth int) {
	if depth <= 0 {
		return
	}
	replies := s.collect(s.commentsByParent[c.ID], domain.CommentApproved)
	sortComments(replies, false)
	for _, r := range replies {
		s.attachReplies(r, depth-1)
	}
	c.Replies = replies
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch domain.PostPatch) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, domain.E(domain.ErrNotFound, "Post not found")
	}
	patch.Apply(post)
	post.UpdatedAt = s.now()

	return clonePost(post), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return domain.E(domain.ErrNotFound, "Post not found")
	}

	// ответы к чужим родителям тоже удаляются: связь идёт по postId
	for cID, c := range s.comments {
		if c.PostID == id {
			s.deleteCommentTree(cID)
		}
	}
	delete(s.commentsByPost, id)
	delete(s.posts, id)

	return nil
}

func (s *Store) PostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, c := range s.comments {
		counts[c.PostID]++
	}

	var posts []*domain.Post
	for _, p := range s.posts {
		if p.AuthorID != authorID {
			continue
		}
		post := clonePost(p)
		count := counts[p.ID]
		post.CommentCount = &count
		posts = append(posts, post)
	}
	sortPosts(posts, query.SortCreatedAt, true)

	return posts, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, domain.E(domain.ErrInvalid, "post %s does not exist", comment.PostID)
	}

	// Проверка родительского комментария. Принадлежность тому же посту не проверяется.
	if comment.ParentID != nil {
		if _, ok := s.comments[*comment.ParentID]; !ok {
			return nil, domain.E(domain.ErrInvalid, "parent comment %s does not exist", *comment.ParentID)
		}
	}

	stored := cloneComment(comment)
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	if stored.Status == "" {
		stored.Status = domain.CommentApproved
	}
	s.comments[stored.ID] = stored

	// Обновление индексов для иерархии
	if stored.ParentID == nil {
		s.commentsByPost[stored.PostID] = append(s.commentsByPost[stored.PostID], stored.ID)
	} else {
		s.commentsByParent[*stored.ParentID] = append(s.commentsByParent[*stored.ParentID], stored.ID)
	}

	return cloneComment(stored), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.E(domain.ErrNotFound, "Comment not found")
	}
	return cloneComment(comment), nil
}

func (s *Store) CommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Comment{}
	for _, c := range s.comments {
		if c.AuthorID == authorID {
			result = append(result, cloneComment(c))
		}
	}
	sortComments(result, true)

	return result, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, patch domain.CommentPatch) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.E(domain.ErrNotFound, "Comment not found")
	}
	if patch.Content != nil {
		comment.Content = *patch.Content
	}
	if patch.Status != nil {
		comment.Status = *patch.Status
	}
	comment.UpdatedAt = s.now()

	return cloneComment(comment), nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return domain.E(domain.ErrNotFound, "Comment not found")
	}
	s.deleteCommentTree(id)

	return nil
}

// deleteCommentTree удаляет комментарий вместе со всеми ответами и чистит индексы.
func (s *Store) deleteCommentTree(id string) {
	c, ok := s.comments[id]
	if !ok {
		return
	}
	for _, child := range s.commentsByParent[id] {
		s.deleteCommentTree(child)
	}
	delete(s.commentsByParent, id)
	delete(s.comments, id)

	if c.ParentID == nil {
		s.commentsByPost[c.PostID] = without(s.commentsByPost[c.PostID], id)
	} else {
		s.commentsByParent[*c.ParentID] = without(s.commentsByParent[*c.ParentID], id)
	}
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string, status domain.CommentStatus) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Comment, len(parentIDs))

	for _, pID := range parentIDs {
		children := s.collect(s.commentsByParent[pID], status)
		// Важно: Dataloader'у нужны отсортированные данные для консистентности
		sortComments(children, false)
		results[pID] = children
	}

	return results, nil
}

func (s *Store) GetPostSummaries(ctx context.Context, ids []string) (map[string]*domain.PostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*domain.PostSummary, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			results[id] = p.Summary()
		}
	}
	return results, nil
}

// === User Methods ===

func (s *Store) EnsureUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if id != user.ID && user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return nil, domain.E(domain.ErrConflict, "email %s is already taken", user.Email)
		}
	}

	now := s.now()
	stored, ok := s.users[user.ID]
	if !ok {
		stored = &domain.User{ID: user.ID, Status: domain.UserActive, CreatedAt: now}
		if user.Status != "" {
			stored.Status = user.Status
		}
		s.users[user.ID] = stored
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Role = user.Role
	stored.EmailVerified = user.EmailVerified
	stored.UpdatedAt = now

	copied := *stored
	return &copied, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.E(domain.ErrNotFound, "User not found")
}

// SetUserStatus меняет статус учётной записи.
func (s *Store) SetUserStatus(id string, status domain.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.Status = status
	}
}

// === Stats ===

func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.Stats
	for _, p := range s.posts {
		stats.TotalPosts++
		if p.Views > 0 {
			stats.ViewedPosts++
		}
		if p.IsFeatured {
			stats.FeaturedPosts++
		}
		if p.Status == domain.PostArchived {
			stats.ArchivedPosts++
		}
	}
	for _, c := range s.comments {
		stats.TotalComments++
		switch c.Status {
		case domain.CommentApproved:
			stats.ApprovedComments++
		case domain.CommentRejected:
			stats.RejectedComments++
		}
	}
	for _, u := range s.users {
		stats.TotalUsers++
		if u.Role == domain.RoleAdmin {
			stats.TotalAdmins++
		}
	}

	return &stats, nil
}

// === helpers ===

func (s *Store) matchPosts(pred query.Predicate) []*domain.Post {
	matched := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if pred.Match(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// collect копирует комментарии по списку id. Пустой status - без фильтра.
func (s *Store) collect(ids []string, status domain.CommentStatus) []*domain.Comment {
	result := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		c, ok := s.comments[id]
		if !ok || (status != "" && c.Status != status) {
			continue
		}
		result = append(result, cloneComment(c))
	}
	return result
}

func sortPosts(posts []*domain.Post, by query.SortField, desc bool) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if desc {
			a, b = b, a
		}
		switch by {
		case query.SortUpdatedAt:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case query.SortTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case query.SortViews:
			if a.Views != b.Views {
				return a.Views < b.Views
			}
		case query.SortStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		case query.SortIsFeatured:
			if a.IsFeatured != b.IsFeatured {
				return !a.IsFeatured
			}
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func sortComments(comments []*domain.Comment, newestFirst bool) {
	sort.SliceStable(comments, func(i, j int) bool {
		if newestFirst {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Tags = append(pq.StringArray(nil), p.Tags...)
	if p.Tags != nil && c.Tags == nil {
		c.Tags = pq.StringArray{}
	}
	c.Comments = nil
	c.CommentCount = nil
	return &c
}

func cloneComment(c *domain.Comment) *domain.Comment {
	copied := *c
	if c.ParentID != nil {
		parent := *c.ParentID
		copied.ParentID = &parent
	}
	copied.Replies = nil
	copied.Post = nil
	return &copied
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
