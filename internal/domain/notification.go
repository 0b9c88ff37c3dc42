package domain

import "time"

type NotificationSource string

const (
	NotificationSourcePost    NotificationSource = "POST"
	NotificationSourceComment NotificationSource = "COMMENT"
	NotificationSourceSystem  NotificationSource = "SYSTEM"
)

type Actor struct {
	UserID          int64  `json:"userId"`
	DisplayName     string `json:"displayName"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Notification is created server-side and delivered over the stream or by
// paging; only IsRead is ever mutated locally.
type Notification struct {
	NotificationID int64              `json:"notificationId"`
	Message        string             `json:"message"`
	SourceType     NotificationSource `json:"sourceType"`
	SourceID       int64              `json:"sourceId"`
	IsRead         bool               `json:"isRead"`
	CreatedAt      time.Time          `json:"createdAt"`
	Actor          Actor              `json:"actor"`
}
