package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/256dpi/xo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/query"
	"github.com/UkralStul/blog-service/internal/storage"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, log *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, xo.WF(err, "failed to connect to database")
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Comment{}); err != nil {
		return nil, xo.WF(err, "failed to migrate database")
	}

	return &Store{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return xo.W(err)
	}
	if err := sqlDB.Close(); err != nil {
		return xo.W(err)
	}
	return nil
}

// newLogger пишет SQL-лог через logrus. Запросы видны только на уровне debug.
func newLogger(log *logrus.Logger) logger.Interface {
	level := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}
	return logger.New(log.WithField("component", "gorm"), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if post.Tags == nil {
		post.Tags = pq.StringArray{}
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, translate(err, "Post not found")
	}
	// GORM автоматически заполнит ID и CreatedAt после создания
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if !validID(id) {
		return nil, domain.E(domain.ErrNotFound, "Post not found")
	}

	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Post not found")
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, pred query.Predicate, page query.Page) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	err := s.listQuery(s.db.WithContext(ctx), pred, page).Find(&posts).Error
	if err != nil {
		return nil, translate(err, "Post not found")
	}
	return posts, nil
}

func (s *Store) listQuery(db *gorm.DB, pred query.Predicate, page query.Page) *gorm.DB {
	return applyPage(applyPredicate(db.Model(&domain.Post{}), pred), page)
}

func (s *Store) CountPosts(ctx context.Context, pred query.Predicate) (int64, error) {
	var total int64
	err := applyPredicate(s.db.WithContext(ctx).Model(&domain.Post{}), pred).Count(&total).Error
	if err != nil {
		return 0, translate(err, "Post not found")
	}
	return total, nil
}

func (s *Store) ViewPost(ctx context.Context, id string) (*domain.Post, error) {
	if !validID(id) {
		return nil, domain.E(domain.ErrNotFound, "Post not found")
	}

	var (
		post  domain.Post
		count int64
	)
	// Увеличение счётчика и чтение дерева видят один и тот же снимок
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Post{}).Where("id = ?", id).UpdateColumn("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := threadQuery(tx).First(&post, "id = ?", id).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Comment{}).Where("post_id = ?", id).Count(&count).Error
	})
	if err != nil {
		return nil, translate(err, "Post not found")
	}

	if post.Comments == nil {
		post.Comments = []*domain.Comment{}
	}
	post.CommentCount = &count
	return &post, nil
}

// threadQuery подгружает три уровня одобренных комментариев:
// корневые новые первыми, ответы и ответы на ответы старые первыми.
func threadQuery(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Comments", approvedRoots).
		Preload("Comments.Replies", approvedReplies).
		Preload("Comments.Replies.Replies", approvedReplies)
}

func approvedRoots(db *gorm.DB) *gorm.DB {
	return db.Where("parent_id IS NULL AND status = ?", domain.CommentApproved).Order("created_at DESC")
}

func approvedReplies(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", domain.CommentApproved).Order("created_at ASC")
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch domain.PostPatch) (*domain.Post, error) {
	if !validID(id) {
		return nil, domain.E(domain.ErrNotFound, "Post not found")
	}

	var post domain.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return err
		}

		updates := postUpdates(patch)
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&post).Updates(updates).Error; err != nil {
			return err
		}

		return tx.First(&post, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err, "Post not found")
	}
	return &post, nil
}

func postUpdates(patch domain.PostPatch) map[string]interface{} {
	updates := make(map[string]interface{})
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Tags != nil {
		updates["tags"] = pq.StringArray(*patch.Tags)
	}
	if patch.IsFeatured != nil {
		updates["is_featured"] = *patch.IsFeatured
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	return updates
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.E(domain.ErrNotFound, "Post not found")
	}

	// комментарии удаляются каскадом по внешнему ключу
	res := s.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "Post not found")
	}
	if res.RowsAffected == 0 {
		return domain.E(domain.ErrNotFound, "Post not found")
	}
	return nil
}

func (s *Store) PostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, translate(err, "Post not found")
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var rows []struct {
		PostID string
		Count  int64
	}
	err = s.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Select("post_id, count(*) AS count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "Post not found")
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Count
	}
	for _, p := range posts {
		count := counts[p.ID]
		p.CommentCount = &count
	}

	return posts, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if !validID(comment.PostID) {
		return nil, domain.E(domain.ErrInvalid, "post %s does not exist", comment.PostID)
	}
	if comment.ParentID != nil && !validID(*comment.ParentID) {
		return nil, domain.E(domain.ErrInvalid, "parent comment %s does not exist", *comment.ParentID)
	}

	// Проверяем существование поста и родителя в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postCount int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).Count(&postCount).Error; err != nil {
			return err
		}
		if postCount == 0 {
			return domain.E(domain.ErrInvalid, "post %s does not exist", comment.PostID)
		}

		// Принадлежность родителя тому же посту не проверяется
		if comment.ParentID != nil {
			var parentCommentCount int64
			if err := tx.Model(&domain.Comment{}).Where("id = ?", *comment.ParentID).Count(&parentCommentCount).Error; err != nil {
				return err
			}
			if parentCommentCount == 0 {
				return domain.E(domain.ErrInvalid, "parent comment %s does not exist", *comment.ParentID)
			}
		}

		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, translate(err, "Comment not found")
	}

	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	if !validID(id) {
		return nil, domain.E(domain.ErrNotFound, "Comment not found")
	}

	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Comment not found")
	}
	return &comment, nil
}

func (s *Store) CommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	comments := []*domain.Comment{}
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err, "Comment not found")
	}
	return comments, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, patch domain.CommentPatch) (*domain.Comment, error) {
	if !validID(id) {
		return nil, domain.E(domain.ErrNotFound, "Comment not found")
	}

	updates := make(map[string]interface{})
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}

	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&comment).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&comment, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err, "Comment not found")
	}
	return &comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.E(domain.ErrNotFound, "Comment not found")
	}

	// ответы удаляются каскадом по parent_id
	res := s.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "Comment not found")
	}
	if res.RowsAffected == 0 {
		return domain.E(domain.ErrNotFound, "Comment not found")
	}
	return nil
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string, status domain.CommentStatus) (map[string][]*domain.Comment, error) {
	ids := validIDs(parentIDs)
	result := make(map[string][]*domain.Comment, len(parentIDs))
	if len(ids) == 0 {
		return result, nil
	}

	var comments []*domain.Comment
	// Загружаем все дочерние комментарии для всех переданных parentID одним запросом
	q := s.db.WithContext(ctx).Where("parent_id IN ?", ids)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("parent_id, created_at ASC").Find(&comments).Error
	if err != nil {
		return nil, translate(err, "Comment not found")
	}

	// Группируем результаты в карту map[parentID][]*Comment
	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}

	return result, nil
}

func (s *Store) GetPostSummaries(ctx context.Context, ids []string) (map[string]*domain.PostSummary, error) {
	valid := validIDs(ids)
	result := make(map[string]*domain.PostSummary, len(ids))
	if len(valid) == 0 {
		return result, nil
	}

	var summaries []*domain.PostSummary
	err := s.db.WithContext(ctx).
		Model(&domain.Post{}).
		Select("id", "title", "views").
		Where("id IN ?", valid).
		Find(&summaries).Error
	if err != nil {
		return nil, translate(err, "Post not found")
	}

	for _, p := range summaries {
		result[p.ID] = p
	}
	return result, nil
}

// === User Methods ===

func (s *Store) EnsureUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	record := *user
	if record.Status == "" {
		record.Status = domain.UserActive
	}

	var stored domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// статус и дата создания при повторном входе не перезаписываются
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "role", "email_verified", "updated_at"}),
		}).Create(&record).Error
		if err != nil {
			return err
		}
		return tx.First(&stored, "id = ?", user.ID).Error
	})
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return &stored, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "lower(email) = lower(?)", email).Error; err != nil {
		return nil, translate(err, "User not found")
	}
	return &user, nil
}

// === Stats ===

func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats

	counters := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.TotalPosts, &domain.Post{}, "", nil},
		{&stats.ViewedPosts, &domain.Post{}, "views > ?", []interface{}{0}},
		{&stats.FeaturedPosts, &domain.Post{}, "is_featured = ?", []interface{}{true}},
		{&stats.ArchivedPosts, &domain.Post{}, "status = ?", []interface{}{domain.PostArchived}},
		{&stats.TotalComments, &domain.Comment{}, "", nil},
		{&stats.ApprovedComments, &domain.Comment{}, "status = ?", []interface{}{domain.CommentApproved}},
		{&stats.RejectedComments, &domain.Comment{}, "status = ?", []interface{}{domain.CommentRejected}},
		{&stats.TotalUsers, &domain.User{}, "", nil},
		{&stats.TotalAdmins, &domain.User{}, "role = ?", []interface{}{domain.RoleAdmin}},
	}

	// все счётчики читаются из одного снимка; соединение транзакции одно, запросы идут по очереди
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range counters {
			q := tx.Model(c.model)
			if c.where != "" {
				q = q.Where(c.where, c.args...)
			}
			if err := q.Count(c.dst).Error; err != nil {
				return err
			}
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, translate(err, "Stats not found")
	}

	return &stats, nil
}

// === helpers ===

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// translate переводит ошибки gorm и драйвера в виды ошибок домена.
func translate(err error, notFound string) error {
	var (
		kindErr *domain.KindError
		netErr  net.Error
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &kindErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.E(domain.ErrNotFound, "%s", notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.E(domain.ErrConflict, "Resource already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.E(domain.ErrInvalid, "Referenced resource does not exist")
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		pgconn.Timeout(err):
		return domain.E(domain.ErrUnavailable, "Database unavailable")
	}
	return xo.W(err)
}
