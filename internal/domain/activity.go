package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Activity represents a bookable offering published by a provider.
type Activity struct {
	ID           int64
	ProviderID   int64
	Title        string
	Description  *string
	Kind         string
	Date         *time.Time
	StartTime    *string
	EndTime      *string
	Availability Availability
	Price        *float64
	Capacity     *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unlimited reports whether the activity accepts any number of enrollments.
func (a Activity) Unlimited() bool {
	return a.Capacity == nil
}

// CatalogEntry is an activity as listed publicly, with its provider contact.
type CatalogEntry struct {
	Activity
	ProviderName  string
	ProviderEmail string
}

// Enrollee describes one consumer enrolled in a provider's activity.
type Enrollee struct {
	EnrollmentID int64
	ConsumerID   int64
	Name         string
	Email        string
	EnrolledAt   time.Time
}

// ProviderActivity is an activity together with everyone enrolled in it.
type ProviderActivity struct {
	Activity
	Enrollees []Enrollee
}

// Availability keeps the raw availability marker of an activity. A JSON
// boolean is kept as "true"/"false"; strings are kept verbatim.
type Availability string

// closedMarkers are compared case-insensitively after trimming.
var closedMarkers = []string{"false", "cerrada", "closed"}

// IsClosed reports whether the activity refuses new enrollments.
func (a Availability) IsClosed() bool {
	value := strings.TrimSpace(string(a))
	for _, marker := range closedMarkers {
		if strings.EqualFold(value, marker) {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts a boolean, a string or null.
func (a *Availability) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch raw {
	case "null":
		*a = ""
		return nil
	case "true", "false":
		*a = Availability(raw)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("availability must be a boolean or a string: %w", err)
	}
	*a = Availability(s)
	return nil
}

// Kinds lists the activity kinds a provider may publish.
var Kinds = []string{
	"Bike ride along the Guadalquivir river",
	"Visit to the Real Alcazar of Seville",
	"Role-playing game session (D&D, Pathfinder, etc.)",
	"Photo walk through the Santa Cruz quarter",
	"Escape room afternoon",
	"Kayak or canoe on the Seville dock",
	"Tapas food tour",
	"Board game afternoon at a themed cafe",
	"Stargazing on the outskirts",
	"Dance class (sevillanas, salsa or bachata)",
}

// IsKnownKind reports whether kind is one of Kinds after trimming.
func IsKnownKind(kind string) bool {
	kind = strings.TrimSpace(kind)
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
