// Package events defines the domain events published to the event bus.
package events

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetAgencyID() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	AgencyID    string    `json:"agency_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetAgencyID() string     { return e.AgencyID }

// Change kinds for EntityChanged.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// EntityChanged is raised when a tenant row is created, updated or deleted.
type EntityChanged struct {
	BaseEvent
	Resource string `json:"resource"`
	Change   string `json:"change"`
}

// NewEntityChanged creates an EntityChanged event such as "tours.updated".
func NewEntityChanged(agencyID, resource, id, change string, at time.Time) EntityChanged {
	return EntityChanged{
		BaseEvent: BaseEvent{
			AggregateID: id,
			EventType:   resource + "." + change,
			AgencyID:    agencyID,
			Timestamp:   at,
		},
		Resource: resource,
		Change:   change,
	}
}

// DraftSaved is raised when an autosaved draft is persisted.
type DraftSaved struct {
	BaseEvent
	Resource string `json:"resource"`
}

// NewDraftSaved creates a DraftSaved event
func NewDraftSaved(agencyID, resource, id string, at time.Time) DraftSaved {
	return DraftSaved{
		BaseEvent: BaseEvent{AggregateID: id, EventType: "draft.saved", AgencyID: agencyID, Timestamp: at},
		Resource:  resource,
	}
}

// ImageUploaded is raised when a template receives a new base image.
type ImageUploaded struct {
	BaseEvent
	Path string `json:"path"`
}

// NewImageUploaded creates an ImageUploaded event
func NewImageUploaded(agencyID, templateID, path string, at time.Time) ImageUploaded {
	return ImageUploaded{
		BaseEvent: BaseEvent{AggregateID: templateID, EventType: "image.uploaded", AgencyID: agencyID, Timestamp: at},
		Path:      path,
	}
}

// ProofRecorded is raised when an embed visitor submits a social-proof event.
type ProofRecorded struct {
	BaseEvent
	WidgetID string `json:"widget_id"`
}

// NewProofRecorded creates a ProofRecorded event
func NewProofRecorded(agencyID, widgetID, eventID string, at time.Time) ProofRecorded {
	return ProofRecorded{
		BaseEvent: BaseEvent{AggregateID: eventID, EventType: "proof.recorded", AgencyID: agencyID, Timestamp: at},
		WidgetID:  widgetID,
	}
}
