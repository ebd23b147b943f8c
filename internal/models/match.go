package models

import "time"

// Match statuses.
const (
	MatchStatusPending   = "pending"
	MatchStatusAccepted  = "accepted"
	MatchStatusRejected  = "rejected"
	MatchStatusCompleted = "completed"
)

// Exchange statuses of a match.
const (
	ExchangeStatusNone             = "none"
	ExchangeStatusFounderConfirmed = "founder_confirmed"
	ExchangeStatusOwnerConfirmed   = "owner_confirmed"
	ExchangeStatusCompleted        = "completed"
	ExchangeStatusExpired          = "expired"
)

// Match sources.
const (
	MatchSourceRubric   = "rubric"
	MatchSourceSemantic = "semantic"
)

// Match links a lost item to a found item that likely describe the same object.
type Match struct {
	ID                  string     `json:"id"`
	LostItemID          string     `json:"lost_item_id"`
	FoundItemID         string     `json:"found_item_id"`
	LostUserID          string     `json:"lost_user_id"`
	FoundUserID         string     `json:"found_user_id"`
	Confidence          int        `json:"confidence"`
	Reason              string     `json:"reason,omitempty"`
	Source              string     `json:"source,omitempty"`
	Status              string     `json:"status"`
	ExchangeStatus      string     `json:"exchange_status"`
	ExchangeStartTime   *time.Time `json:"exchange_start_time,omitempty"`
	ExchangeConfirmedBy []string   `json:"exchange_confirmed_by"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Involves reports whether userID is one of the two parties of the match.
func (m Match) Involves(userID string) bool {
	return userID != "" && (m.LostUserID == userID || m.FoundUserID == userID)
}

// Clone returns a deep copy of the match.
func (m Match) Clone() Match {
	if m.ExchangeStartTime != nil {
		start := *m.ExchangeStartTime
		m.ExchangeStartTime = &start
	}
	if m.ExchangeConfirmedBy != nil {
		m.ExchangeConfirmedBy = append([]string(nil), m.ExchangeConfirmedBy...)
	}
	return m
}
