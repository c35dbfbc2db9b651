package domain

import "time"

// UserSettings holds per-user preferences that gate the scheduled engines.
type UserSettings struct {
	AlertsEnabled  bool    `json:"alertsEnabled"`
	DigestEnabled  bool    `json:"digestEnabled"`
	DigestTime     string  `json:"digestTime"` // "HH:MM", UTC
	StopLossPct    float64 `json:"stopLossPct"`
}

// User is created on first inbound message and never destroyed by the
// core. (platform, platformUserId) is unique.
type User struct {
	ID             string       `json:"id"`
	Platform       Channel      `json:"platform"`
	PlatformUserID string       `json:"platformUserId"`
	Settings       UserSettings `json:"settings"`
	CreatedAt      int64        `json:"createdAtMs"`
}

// Session identifies a routing target for notifications: the last
// channel/chat a user was active on.
type Session struct {
	ID           string  `json:"id"`
	Key          string  `json:"key"`
	UserID       string  `json:"userId"`
	Channel      Channel `json:"channel"`
	ChatID       string  `json:"chatId"`
	LastActivity int64   `json:"lastActivityMs"`
}

// NowMS returns the current UTC time in epoch milliseconds — the
// timestamp unit used throughout the core (spec §3).
func NowMS(t time.Time) int64 {
	return t.UnixMilli()
}
