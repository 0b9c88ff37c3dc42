package domain

import "time"

type UserRole string

const (
	UserRoleUser       UserRole = "USER"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPER_ADMIN"
)

type UserStatus string

const (
	UserStatusActive     UserStatus = "ACTIVE"
	UserStatusInactive   UserStatus = "INACTIVE"
	UserStatusSanctioned UserStatus = "SANCTIONED"
)

type User struct {
	UserID          int64      `json:"userId"`
	DisplayName     string     `json:"displayName"`
	Email           string     `json:"email"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty"`
	Role            UserRole   `json:"role"`
	Status          UserStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (u User) Admin() bool {
	return u.Role == UserRoleAdmin || u.Role == UserRoleSuperAdmin
}

func (u User) Sanctioned() bool {
	return u.Status == UserStatusSanctioned
}
