// internal/domain/models/notification.go
package models

import "time"

// NotificationsCollection holds campus notification documents.
const NotificationsCollection = "notifications"

// DeliveryType controls when a Notification becomes visible in the app.
type DeliveryType string

const (
	DeliveryImmediate DeliveryType = "immediate"
	DeliveryScheduled DeliveryType = "scheduled"
)

// Status is the publish state of an item relative to a reference time.
type Status string

const (
	StatusPublished Status = "published"
	StatusScheduled Status = "scheduled"
)

// Notification is a campus notice targeted at faculties and grades.
//
// PublishedAt and Status are derived together at write time from the
// delivery settings and are never set independently.
type Notification struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Department string `json:"department"`

	IsImportant     bool     `json:"isImportant"`
	TargetFaculties []string `json:"targetFaculties"`
	TargetGrades    []string `json:"targetGrades"`
	Links           []string `json:"links"`

	// Date and time the notice was published on the university portal, as
	// entered by staff.
	UtasPublishedDate string `json:"utasPublishedDate"`
	UtasPublishedTime string `json:"utasPublishedTime"`

	DeliveryType  DeliveryType `json:"deliveryType"`
	ScheduledDate string       `json:"scheduledDate,omitempty"`
	ScheduledTime string       `json:"scheduledTime,omitempty"`

	PublishedAt time.Time `json:"publishedAt"`
	Status      Status    `json:"status"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
