// Package models defines the data structures used across the application.
// Reports map to the `reports` collection in whichever repository driver is
// configured.
package models

import (
	"time"
)

// IssueType is the kind of road problem a citizen reports.
type IssueType string

const (
	IssuePothole          IssueType = "Pothole"
	IssueStreetlightOut   IssueType = "Streetlight Out"
	IssueDrainageBlockage IssueType = "Drainage Blockage"
	IssueDamagedGuardrail IssueType = "Damaged Guardrail"
	IssueOther            IssueType = "Other"
)

// IssueTypes lists every accepted issue type in display order.
var IssueTypes = []IssueType{
	IssuePothole,
	IssueStreetlightOut,
	IssueDrainageBlockage,
	IssueDamagedGuardrail,
	IssueOther,
}

// Valid reports whether t is one of the known issue types.
func (t IssueType) Valid() bool {
	for _, known := range IssueTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a report. It is the only field of a
// Report that changes after creation.
type Status string

const (
	StatusReported   Status = "Reported"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusReported, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the three lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusReported, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Report is a single citizen-submitted road issue.
type Report struct {
	ID          string    `json:"id" db:"id" firestore:"-"`
	IssueType   IssueType `json:"issueType" db:"issue_type" firestore:"issueType"`
	Description string    `json:"description" db:"description" firestore:"description"`
	Location    string    `json:"location" db:"location" firestore:"location"`
	PhotoURL    string    `json:"photoURL,omitempty" db:"photo_url" firestore:"photoURL,omitempty"`
	Status      Status    `json:"status" db:"status" firestore:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" firestore:"timestamp"`
}

// NewReport is what the issue service hands to a repository. The repository
// assigns the id and keeps the remaining fields as given.
type NewReport struct {
	IssueType   IssueType
	Description string
	Location    string
	PhotoURL    string
	Status      Status
	CreatedAt   time.Time
}

// StatusChange is one entry of a report's append-only status history.
type StatusChange struct {
	ReportID  string    `json:"reportId" db:"report_id" firestore:"reportId"`
	From      Status    `json:"from" db:"from_status" firestore:"from"`
	To        Status    `json:"to" db:"to_status" firestore:"to"`
	ChangedAt time.Time `json:"at" db:"changed_at" firestore:"at"`
}

// Photo is an optional binary attachment supplied with a submission.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitReportRequest is the validated input of a submission
type SubmitReportRequest struct {
	IssueType   string `json:"issue_type" validate:"required,issue_type"`
	Description string `json:"description" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Photo       *Photo `json:"-"`
}

// UpdateStatusRequest is the request body for changing a report's status
type UpdateStatusRequest struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required,report_status"`
}

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token used on status updates
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime,omitempty"`
	Repository string `json:"repository,omitempty"`
}
