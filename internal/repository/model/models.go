package model

import (
	"time"
)

type Meeting struct {
	ID        string     `gorm:"size:128;primaryKey"`
	Name      string     `gorm:"size:255;not null"`
	HostID    string     `gorm:"size:128;index"`
	Status    string     `gorm:"size:32;index;not null"`
	CreatedAt time.Time  `gorm:"not null"`
	EndedAt   *time.Time
	UpdatedAt time.Time
}

// MeetingDocument is the shape of a meeting in the document store.
type MeetingDocument struct {
	ID        string     `bson:"_id"`
	Name      string     `bson:"name"`
	HostID    string     `bson:"hostId,omitempty"`
	Status    string     `bson:"status"`
	CreatedAt time.Time  `bson:"createdAt"`
	EndedAt   *time.Time `bson:"endedAt,omitempty"`
}
