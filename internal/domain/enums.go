package domain

import "strings"

// PostStatus - статус публикации поста.
type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostPublished PostStatus = "PUBLISHED"
	PostArchived  PostStatus = "ARCHIVED"
)

// ParsePostStatus нормализует регистр и проверяет значение.
func ParsePostStatus(s string) (PostStatus, bool) {
	switch st := PostStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case PostDraft, PostPublished, PostArchived:
		return st, true
	}
	return "", false
}

// CommentStatus - состояние модерации комментария.
type CommentStatus string

const (
	CommentPending  CommentStatus = "PENDING"
	CommentApproved CommentStatus = "APPROVED"
	CommentRejected CommentStatus = "REJECTED"
)

// ParseCommentStatus принимает любое из трёх состояний.
func ParseCommentStatus(s string) (CommentStatus, bool) {
	switch st := CommentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case CommentPending, CommentApproved, CommentRejected:
		return st, true
	}
	return "", false
}

// ParseModerationStatus принимает только конечные состояния модерации.
// Вернуться в PENDING нельзя.
func ParseModerationStatus(s string) (CommentStatus, bool) {
	st, ok := ParseCommentStatus(s)
	if !ok || st == CommentPending {
		return "", false
	}
	return st, true
}

// Role - роль пользователя.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole нормализует роль, пришедшую от провайдера аутентификации.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, true
	}
	return "", false
}

// UserStatus - состояние учётной записи.
type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserBlocked UserStatus = "BLOCKED"
)
