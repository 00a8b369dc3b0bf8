package domain

import (
	"time"

	"github.com/lib/pq"
)

// Post представляет пост в блоге.
type Post struct {
	ID         string         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title      string         `json:"title" gorm:"type:varchar(255);not null"`
	Content    string         `json:"content" gorm:"type:text;not null"`
	Tags       pq.StringArray `json:"tags" gorm:"type:text[];not null;default:'{}'"`
	IsFeatured bool           `json:"isFeatured" gorm:"not null;default:false;index"`
	Status     PostStatus     `json:"status" gorm:"type:varchar(16);not null;default:'PUBLISHED';index"`
	Views      int64          `json:"views" gorm:"not null;default:0"`
	AuthorID   string         `json:"authorId" gorm:"type:varchar(255);not null;index"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt  time.Time      `json:"updatedAt" gorm:"not null;default:now()"`

	// Заполняются только при чтении поста целиком.
	Comments     []*Comment `json:"comments,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CommentCount *int64     `json:"commentCount,omitempty" gorm:"-"`
}

// PostSummary - урезанное представление поста, которым аннотируются комментарии.
type PostSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Views int64  `json:"views"`
}

// Summary возвращает краткое представление поста.
func (p *Post) Summary() *PostSummary {
	return &PostSummary{ID: p.ID, Title: p.Title, Views: p.Views}
}

// Comment представляет комментарий к посту. ParentID == nil означает комментарий верхнего уровня.
type Comment struct {
	ID        string        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PostID    string        `json:"postId" gorm:"type:uuid;not null;index"`
	ParentID  *string       `json:"parentId" gorm:"type:uuid;index"`
	AuthorID  string        `json:"authorId" gorm:"type:varchar(255);not null;index"`
	Content   string        `json:"content" gorm:"type:text;not null"`
	Status    CommentStatus `json:"status" gorm:"type:varchar(16);not null;default:'APPROVED';index"`
	CreatedAt time.Time     `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt time.Time     `json:"updatedAt" gorm:"not null;default:now()"`

	Replies []*Comment   `json:"replies,omitempty" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Post    *PostSummary `json:"post,omitempty" gorm:"-"`
}

// User - пользователь, заведённый внешним провайдером аутентификации.
type User struct {
	ID            string     `json:"id" gorm:"type:varchar(255);primary_key"`
	Name          string     `json:"name" gorm:"type:varchar(255)"`
	Email         string     `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	Role          Role       `json:"role" gorm:"type:varchar(16);not null;default:'USER';index"`
	EmailVerified bool       `json:"emailVerified" gorm:"not null;default:false"`
	Status        UserStatus `json:"status" gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	CreatedAt     time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt     time.Time  `json:"updatedAt" gorm:"not null;default:now()"`
}

// PostPatch описывает частичное обновление поста. nil - поле не меняется.
type PostPatch struct {
	Title      *string
	Content    *string
	Tags       *[]string
	IsFeatured *bool
	Status     *PostStatus
}

// Empty сообщает, что патч ничего не меняет.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil && p.IsFeatured == nil && p.Status == nil
}

// Apply применяет патч к посту.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Tags != nil {
		post.Tags = append(pq.StringArray{}, (*p.Tags)...)
	}
	if p.IsFeatured != nil {
		post.IsFeatured = *p.IsFeatured
	}
	if p.Status != nil {
		post.Status = *p.Status
	}
}

// CommentPatch описывает частичное обновление комментария.
type CommentPatch struct {
	Content *string
	Status  *CommentStatus
}

// Stats - сводные счётчики для админской панели.
type Stats struct {
	TotalPosts       int64 `json:"totalPosts"`
	ViewedPosts      int64 `json:"viewedPosts"`
	FeaturedPosts    int64 `json:"featuredPosts"`
	ArchivedPosts    int64 `json:"archivedPosts"`
	TotalComments    int64 `json:"totalComments"`
	ApprovedComments int64 `json:"approvedComments"`
	RejectedComments int64 `json:"rejectedComments"`
	TotalUsers       int64 `json:"totalUsers"`
	TotalAdmins      int64 `json:"totalAdmins"`
}
