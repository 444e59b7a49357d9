package entities

import (
	"time"

	"github.com/alanwallace9/agencytoolkit/pkg/validation"
)

// Customer is a sub-account managed by an agency.
type Customer struct {
	Base
	Name       string   `json:"name" validate:"required,max=200"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Company    string   `json:"company" validate:"max=200"`
	LocationID string   `json:"location_id" validate:"max=100"`
	Tags       []string `json:"tags" validate:"max=50,dive,max=50"`
	Active     bool     `json:"active"`
}

func (c *Customer) Validate() error { return validation.Struct(c) }

// Theme is a branding preset applied to embedded pages.
type Theme struct {
	Base
	Name      string         `json:"name" validate:"required,max=100"`
	Settings  map[string]any `json:"settings"`
	IsDefault bool           `json:"is_default"`
}

func (t *Theme) Validate() error { return validation.Struct(t) }

// TourStep highlights one element on the host page.
type TourStep struct {
	Selector string `json:"selector" validate:"required,max=500"`
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"max=2000"`
	Position string `json:"position" validate:"omitempty,position"`
}

// Tour is an onboarding walkthrough.
type Tour struct {
	Base
	Name      string     `json:"name" validate:"required,max=100"`
	Steps     []TourStep `json:"steps" validate:"max=50,dive"`
	Published bool       `json:"published"`
}

func (t *Tour) Validate() error { return validation.Struct(t) }
func (t *Tour) Live() bool      { return t.Published }

// ChecklistItem is one task on a checklist.
type ChecklistItem struct {
	ID    string `json:"id" validate:"required,max=64"`
	Label string `json:"label" validate:"required,max=200"`
	URL   string `json:"url" validate:"omitempty,url"`
	Done  bool   `json:"done"`
}

// Checklist is an onboarding task list.
type Checklist struct {
	Base
	Name      string          `json:"name" validate:"required,max=100"`
	Items     []ChecklistItem `json:"items" validate:"max=100,dive"`
	Published bool            `json:"published"`
}

func (c *Checklist) Validate() error { return validation.Struct(c) }
func (c *Checklist) Live() bool      { return c.Published }

// Widget displays recent social-proof events.
type Widget struct {
	Base
	Name           string `json:"name" validate:"required,max=100"`
	Position       string `json:"position" validate:"required,position"`
	DisplaySeconds int    `json:"display_seconds" validate:"min=1,max=60"`
	Active         bool   `json:"active"`
}

func (w *Widget) Validate() error { return validation.Struct(w) }
func (w *Widget) Live() bool      { return w.Active }

// Widget defaults.
const (
	DefaultWidgetSeconds  = 5
	DefaultWidgetPosition = "bottom-left"
)

func (w *Widget) ApplyDefaults() {
	if w.DisplaySeconds == 0 {
		w.DisplaySeconds = DefaultWidgetSeconds
	}
	if w.Position == "" {
		w.Position = DefaultWidgetPosition
	}
}

// ImageTemplate is a base image with a personalized text overlay.
type ImageTemplate struct {
	Base
	Name          string `json:"name" validate:"required,max=100"`
	BaseImagePath string `json:"base_image_path"`
	TextX         int    `json:"text_x" validate:"min=0,max=10000"`
	TextY         int    `json:"text_y" validate:"min=0,max=10000"`
	TextColor     string `json:"text_color" validate:"omitempty,hexcolor"`
	TextSize      int    `json:"text_size" validate:"omitempty,min=1,max=8"`
	DefaultName   string `json:"default_name" validate:"max=100"`
}

func (i *ImageTemplate) Validate() error { return validation.Struct(i) }

func (i *ImageTemplate) ApplyDefaults() {
	if i.TextColor == "" {
		i.TextColor = "#000000"
	}
	if i.TextSize == 0 {
		i.TextSize = 2
	}
}

// ProofEvent is one social-proof notification, such as "Ana from Lisbon
// booked a demo".
type ProofEvent struct {
	ID         string    `json:"id"`
	AgencyID   string    `json:"agency_id"`
	WidgetID   string    `json:"widget_id"`
	FirstName  string    `json:"first_name" validate:"required,max=50"`
	City       string    `json:"city" validate:"max=80"`
	Action     string    `json:"action" validate:"required,max=120"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *ProofEvent) Validate() error { return validation.Struct(e) }
