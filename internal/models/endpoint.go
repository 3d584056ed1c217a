package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the delivery channel an endpoint token belongs to.
// The set is closed; anything else in the registry is a data error.
type Platform string

const (
	PlatformIOS     Platform = "mobile-ios"
	PlatformAndroid Platform = "mobile-android"
	PlatformBrowser Platform = "browser"
)

// Endpoint is one registered delivery target. For mobile platforms Token is
// the raw gateway push token; for browser it is a serialized subscription
// (endpoint URL plus key material). Token is the deletion key.
type Endpoint struct {
	ID        uuid.UUID `json:"id"`
	FamilyID  string    `json:"family_id"`
	Token     string    `json:"token"`
	Platform  Platform  `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}
