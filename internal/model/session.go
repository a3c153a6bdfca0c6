package model

import "time"

// Origin records which flow created a session.
type Origin string

const (
	OriginLogin  Origin = "login"
	OriginSignup Origin = "signup"
)

// Credential is what a user types to log in or sign up.
type Credential struct {
	Email    string
	Password string
}

// Session is the single live authentication state of the process.
type Session struct {
	IsAuthenticated bool      `json:"is_authenticated"`
	Credential      string    `json:"credential"` // opaque signed token
	UserID          string    `json:"user_id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Origin          Origin    `json:"origin"`
	SetupSkipped    bool      `json:"setup_skipped,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Stage is a workflow stage a user may be routed to.
type Stage string

const (
	StageLogin        Stage = "login"
	StageProfileSetup Stage = "profile-setup"
	StageDashboard    Stage = "dashboard"
	StageAnalysis     Stage = "analysis"
)

// EventKind distinguishes store notifications.
type EventKind string

const (
	EventSessionChanged EventKind = "session-changed"
	EventProfileChanged EventKind = "profile-changed"
)

// Event is delivered to store subscribers after a committed change.
type Event struct {
	Kind    EventKind
	Session Session
	Profile Profile
	At      time.Time
}
