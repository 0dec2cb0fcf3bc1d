package profile

import "time"

// Plan is the subscription tier of a profile.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

// Valid reports whether p is one of the known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro, PlanPremium:
		return true
	}
	return false
}

// Profile is the application's own user record, keyed by the session subject
// id. Rows are created lazily on first successful session resolution.
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Plan      Plan      `json:"plan" db:"plan"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Transient marks a profile synthesized from session claims because the
	// profile store was unreachable. It is never persisted and never saved
	// back; the next resolution retries the store.
	Transient bool `json:"-" db:"-"`
}
