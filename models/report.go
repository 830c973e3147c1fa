package models

import (
	"time"
)

// ReportStatus enum
type ReportStatus string

const (
	Pending    ReportStatus = "PENDING"
	InProgress ReportStatus = "IN_PROGRESS"
	Resolved   ReportStatus = "RESOLVED"
	Rejected   ReportStatus = "REJECTED"
)

// ReportStatuses lists every status a report can hold, in workflow order.
var ReportStatuses = []ReportStatus{Pending, InProgress, Resolved, Rejected}

// Valid reports whether s is one of the known statuses.
func (s ReportStatus) Valid() bool {
	switch s {
	case Pending, InProgress, Resolved, Rejected:
		return true
	}
	return false
}

// Open reports whether the status still needs staff attention.
func (s ReportStatus) Open() bool {
	return s == Pending || s == InProgress
}

// Report represents a civic issue submitted by a citizen
type Report struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Title       string       `gorm:"size:100;not null" bson:"title" json:"title"`
	Description string       `gorm:"size:1000;not null" bson:"description" json:"description"`
	ImageURL    *string      `gorm:"type:text" bson:"imageUrl,omitempty" json:"imageUrl"`
	Latitude    float64      `gorm:"not null" bson:"latitude" json:"latitude"`
	Longitude   float64      `gorm:"not null" bson:"longitude" json:"longitude"`
	Address     *string      `bson:"address,omitempty" json:"address"`
	Status      ReportStatus `gorm:"size:20;not null;default:PENDING;index" bson:"status" json:"status"`
	UserID      string       `gorm:"type:varchar(36);not null;index" bson:"userId" json:"userId"`
	CreatedAt   time.Time    `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// ReportOwner is the public summary of a report's owner embedded in listings.
type ReportOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReportWithOwner is a report enriched with its owner's summary.
type ReportWithOwner struct {
	Report
	User *ReportOwner `json:"user,omitempty"`
}

// ReportStats summarises report counts for the admin dashboard.
type ReportStats struct {
	ByStatus map[ReportStatus]int64 `json:"byStatus"`
	Total    int64                  `json:"total"`
	Open     int64                  `json:"open"`
}
