package entities

import "time"

// Plan is an agency's subscription tier.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanAgency Plan = "agency"
)

// Paid reports whether the plan unlocks publishing.
func (p Plan) Paid() bool {
	return p == PlanPro || p == PlanAgency
}

// Agency is the tenant. It is keyed by the identity provider's user id.
type Agency struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	EmbedKey  string    `json:"embed_key"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}
