// Package entities holds the tenant-owned records of the toolkit.
package entities

import (
	"time"

	"github.com/alanwallace9/agencytoolkit/domain/core/valueobjects"
	"github.com/alanwallace9/agencytoolkit/pkg/validation"
)

func init() {
	validation.Register("position", func(v string) bool {
		return valueobjects.Position(v).Valid()
	})
}

// Base carries the columns every tenant row has.
type Base struct {
	ID        string    `json:"id"`
	AgencyID  string    `json:"agency_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta returns the row's common columns.
func (b *Base) Meta() *Base { return b }

// Entity is a tenant-owned row.
type Entity interface {
	Meta() *Base
	Validate() error
}

// Publishable entities can be made visible to embed visitors.
type Publishable interface {
	Entity
	Live() bool
}

// Defaulter fills unset optional fields before a row is created.
type Defaulter interface {
	ApplyDefaults()
}

// ProtectedFields can never be written through an update.
var ProtectedFields = []string{"id", "agency_id", "created_at"}

// StripProtected returns a copy of fields without protected or server-managed keys.
func StripProtected(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range ProtectedFields {
		delete(out, k)
	}
	delete(out, "updated_at")
	return out
}
