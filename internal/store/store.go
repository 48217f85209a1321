// Package store defines the records the site persists and the Store contract
// implemented by the memory and postgres backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Lead is a contact form submission.
type Lead struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message"`
	Interest  string    `json:"interest,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscriber is a newsletter signup keyed by normalized email.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Calculation is the log entry of one calculator run.
type Calculation struct {
	ID                   string          `json:"id"`
	RequestID            string          `json:"requestId,omitempty"`
	CapacityClass        string          `json:"capacityClass"`
	ElectricityRate      float64         `json:"electricityRate"`
	OperatingCostPercent float64         `json:"operatingCostPercent"`
	Investment           float64         `json:"investment"`
	NPV                  float64         `json:"npv"`
	IRRPercent           float64         `json:"irrPercent"`
	Degenerate           bool            `json:"degenerate"`
	Result               json.RawMessage `json:"result"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// Assessment is the log entry of one land assessment.
type Assessment struct {
	ID           string          `json:"id"`
	RequestID    string          `json:"requestId,omitempty"`
	AreaHectares float64         `json:"areaHectares"`
	Terrain      string          `json:"terrain"`
	PotentialMW  float64         `json:"potentialMW"`
	Score        int             `json:"score"`
	Rating       string          `json:"rating"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Store persists site records. Implementations assign ID and CreatedAt when
// they are empty and return the stored record.
type Store interface {
	SaveLead(ctx context.Context, lead Lead) (Lead, error)
	// SaveSubscriber returns the existing subscriber and created=false when
	// the email is already registered.
	SaveSubscriber(ctx context.Context, sub Subscriber) (Subscriber, bool, error)
	Subscriber(ctx context.Context, email string) (Subscriber, error)
	SaveCalculation(ctx context.Context, calc Calculation) (Calculation, error)
	SaveAssessment(ctx context.Context, a Assessment) (Assessment, error)
	// PurgeCalculations deletes calculation logs created before the cutoff.
	PurgeCalculations(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// Identify fills in a missing id and creation time.
func Identify(id *string, createdAt *time.Time, now time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = now.UTC()
	}
}
