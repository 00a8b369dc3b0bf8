package domain

// Identity - то, что внешний провайдер аутентификации сообщает о вызывающем.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Role          Role   `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Owns reports whether the identity is the owner of a resource.
func (i *Identity) Owns(ownerID string) bool {
	return i != nil && i.ID != "" && i.ID == ownerID
}

// HasRole проверяет, входит ли роль в список разрешённых. Пустой список разрешает всё.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == i.Role {
			return true
		}
	}
	return false
}

// User превращает личность в запись пользователя.
func (i *Identity) User() *User {
	return &User{
		ID:            i.ID,
		Name:          i.Name,
		Email:         i.Email,
		Role:          i.Role,
		EmailVerified: i.EmailVerified,
		Status:        UserActive,
	}
}
