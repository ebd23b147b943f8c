package models

import "time"

// Trust score bounds.
const (
	MinTrustScore     = 0
	MaxTrustScore     = 100
	InitialTrustScore = 100
)

// Profile is the public reputation record of a user.
type Profile struct {
	UID             string    `json:"uid"`
	Username        string    `json:"username"`
	TrustScore      int       `json:"trust_score"`
	ReportsCount    int       `json:"reports_count"`
	FailedExchanges int       `json:"failed_exchanges"`
	JoinedAt        time.Time `json:"joined_at"`
	IsVerified      bool      `json:"is_verified"`
}

// DeviceToken is a push registration token of a user device.
type DeviceToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
