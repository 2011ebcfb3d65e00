package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

// ContactEvent is an append-only behavioral record. Rows are never updated
// or deleted outside retention cleanup; reads are sliding-window counts.
type ContactEvent struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Email     string          `gorm:"type:text;not null;index:idx_contact_events_email_type_created,priority:1"`
	Type      enums.EventType `gorm:"type:contact_event_type;not null;index:idx_contact_events_email_type_created,priority:2"`
	Metadata  string          `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time       `gorm:"type:timestamptz;index:idx_contact_events_email_type_created,priority:3"`
}
