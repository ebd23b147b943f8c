package models

import (
	"math"
	"time"
)

// Item kinds.
const (
	KindLost  = "lost"
	KindFound = "found"
)

// Item statuses.
const (
	ItemStatusOpen      = "open"
	ItemStatusMatched   = "matched"
	ItemStatusCompleted = "completed"
)

// Item priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// GeoPoint describes where an item was lost or found (WGS84).
type GeoPoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// DistanceTo returns distance in meters using a haversine approximation.
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	const earthRadius = 6371000.0
	lat1 := toRadians(p.Lat)
	lat2 := toRadians(other.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(other.Lng - p.Lng)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func toRadians(v float64) float64 {
	return v * math.Pi / 180
}

// PrivateDetails holds verification secrets only the reporting user may see.
type PrivateDetails struct {
	DistinguishingMarks string `json:"distinguishing_marks,omitempty"`
	Contents            string `json:"contents,omitempty"`
	SerialNumber        string `json:"serial_number,omitempty"`
}

// Item is a lost or found report.
type Item struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Kind           string          `json:"kind"`
	Title          string          `json:"title"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	ColorTokens    []string        `json:"color_tokens"`
	BrandToken     string          `json:"brand_token,omitempty"`
	Location       *GeoPoint       `json:"location,omitempty"`
	Image          string          `json:"image,omitempty"`
	Priority       string          `json:"priority,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	PrivateDetails *PrivateDetails `json:"private_details,omitempty"`
}

// Public returns a copy of the item without its private details.
func (i Item) Public() Item {
	i.PrivateDetails = nil
	if i.ColorTokens != nil {
		i.ColorTokens = append([]string(nil), i.ColorTokens...)
	}
	return i
}

// ViewFor returns the representation of the item visible to userID.
func (i Item) ViewFor(userID string) Item {
	if userID != "" && userID == i.OwnerID {
		return i
	}
	return i.Public()
}

// OppositeKind returns the kind an item of the given kind is matched against.
func OppositeKind(kind string) string {
	if kind == KindLost {
		return KindFound
	}
	return KindLost
}

// ValidKind reports whether kind is lost or found.
func ValidKind(kind string) bool {
	return kind == KindLost || kind == KindFound
}

// ItemPatch carries the mutable fields of an item. Nil fields are left untouched.
type ItemPatch struct {
	Kind           *string         `json:"kind,omitempty"`
	Title          *string         `json:"title,omitempty"`
	Category       *string         `json:"category,omitempty"`
	Description    *string         `json:"description,omitempty"`
	ColorTokens    []string        `json:"color_tokens,omitempty"`
	BrandToken     *string         `json:"brand_token,omitempty"`
	Location       *GeoPoint       `json:"location,omitempty"`
	Image          *string         `json:"image,omitempty"`
	Priority       *string         `json:"priority,omitempty"`
	Status         *string         `json:"status,omitempty"`
	PrivateDetails *PrivateDetails `json:"private_details,omitempty"`
}
