package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType names a lifecycle event emitted after a successful mutation.
type ActivityType string

const (
	ActivityCreated   ActivityType = "annonce.created"
	ActivityUpdated   ActivityType = "annonce.updated"
	ActivityPatched   ActivityType = "annonce.patched"
	ActivityPublished ActivityType = "annonce.published"
	ActivityArchived  ActivityType = "annonce.archived"
	ActivityDeleted   ActivityType = "annonce.deleted"
)

// Activity describes one lifecycle change of an ad.
type Activity struct {
	ID         int64         `json:"id,omitempty"`
	Type       ActivityType  `json:"type"`
	AnnonceID  uuid.UUID     `json:"annonceId"`
	ActorID    uuid.UUID     `json:"actorId"`
	Status     AnnonceStatus `json:"status"`
	Version    int64         `json:"version"`
	OccurredAt time.Time     `json:"occurredAt"`
}
