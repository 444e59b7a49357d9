package entities

import "fmt"

// Resource names a tenant collection as it appears in URLs.
type Resource string

const (
	ResourceCustomers  Resource = "customers"
	ResourceThemes     Resource = "themes"
	ResourceTours      Resource = "tours"
	ResourceChecklists Resource = "checklists"
	ResourceWidgets    Resource = "widgets"
	ResourceImages     Resource = "images"
)

var resourceTables = map[Resource]string{
	ResourceCustomers:  "customers",
	ResourceThemes:     "themes",
	ResourceTours:      "tours",
	ResourceChecklists: "checklists",
	ResourceWidgets:    "social_proof_widgets",
	ResourceImages:     "image_templates",
}

var resourceSingular = map[Resource]string{
	ResourceCustomers:  "customer",
	ResourceThemes:     "theme",
	ResourceTours:      "tour",
	ResourceChecklists: "checklist",
	ResourceWidgets:    "widget",
	ResourceImages:     "image template",
}

// DraftResources are the collections edited through autosaved drafts.
var DraftResources = []Resource{ResourceThemes, ResourceTours, ResourceChecklists, ResourceWidgets}

// ParseResource validates s against the known collections.
func ParseResource(s string) (Resource, error) {
	r := Resource(s)
	if _, ok := resourceTables[r]; !ok {
		return "", fmt.Errorf("unknown resource %q", s)
	}
	return r, nil
}

// Table is the backing database table.
func (r Resource) Table() string { return resourceTables[r] }

// Singular is the human name of one row.
func (r Resource) Singular() string { return resourceSingular[r] }

// Draftable reports whether r can be edited as a draft.
func (r Resource) Draftable() bool {
	for _, d := range DraftResources {
		if d == r {
			return true
		}
	}
	return false
}
