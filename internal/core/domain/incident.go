package domain

import "time"

// CrisisType is the closed set of emergencies a requester can report.
type CrisisType string

const (
	CrisisMedical   CrisisType = "Medical"
	CrisisFire      CrisisType = "Fire"
	CrisisBreakdown CrisisType = "Breakdown"
	CrisisGasLeak   CrisisType = "Gas Leak"
	CrisisOther     CrisisType = "Other"
)

// CrisisTypes lists every accepted crisis type.
var CrisisTypes = []CrisisType{CrisisMedical, CrisisFire, CrisisBreakdown, CrisisGasLeak, CrisisOther}

func (c CrisisType) Valid() bool {
	for _, t := range CrisisTypes {
		if c == t {
			return true
		}
	}
	return false
}

// AlertRadius is the notification radius in meters.
type AlertRadius int

const (
	Radius500  AlertRadius = 500
	Radius1000 AlertRadius = 1000
	Radius2000 AlertRadius = 2000

	DefaultRadius = Radius1000
)

func (r AlertRadius) Valid() bool {
	return r == Radius500 || r == Radius1000 || r == Radius2000
}

// IncidentStatus is Active until the triggerer resolves it. Resolved is terminal.
type IncidentStatus string

const (
	StatusActive   IncidentStatus = "active"
	StatusResolved IncidentStatus = "resolved"
)

// Progress is a responder's position in their response.
//
// Any value may follow any other: a responder who has arrived may report
// en_route again (for example when fetching equipment). Whether that
// regression should be rejected is left to the integrating product.
type Progress string

const (
	ProgressEnRoute Progress = "en_route"
	ProgressArrived Progress = "arrived"
)

func (p Progress) Valid() bool {
	return p == ProgressEnRoute || p == ProgressArrived
}

// Responder is one entry of an incident's responder list.
type Responder struct {
	UserID   string    `json:"user_id" bson:"user_id"`
	Progress Progress  `json:"progress" bson:"progress"`
	JoinedAt time.Time `json:"joined_at" bson:"joined_at"`
}

// Message is one entry of an incident's coordination log.
type Message struct {
	ID         string    `json:"id" bson:"id"`
	IncidentID string    `json:"incident_id" bson:"-"`
	SenderName string    `json:"sender_name" bson:"sender_name"`
	Text       string    `json:"text" bson:"text"`
	SentAt     time.Time `json:"sent_at" bson:"sent_at"`
	// Persisted is false when the log store was unavailable and the message
	// was only delivered live.
	Persisted bool `json:"persisted" bson:"-"`
}

// Incident is the aggregate owned by the lifecycle manager.
type Incident struct {
	ID              string         `json:"id"`
	CrisisType      CrisisType     `json:"crisis_type"`
	Origin          Point          `json:"origin"`
	Radius          AlertRadius    `json:"radius"`
	TriggeredBy     string         `json:"triggered_by"`
	TriggeredByName string         `json:"triggered_by_name"`
	Status          IncidentStatus `json:"status"`
	Responders      []Responder    `json:"responders"`
	FlaggedFalse    bool           `json:"flagged_false_alert"`
	CreatedAt       time.Time      `json:"created_at"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

func (i *Incident) IsResolved() bool {
	return i.Status == StatusResolved
}

// HasResponder reports whether userID is already in the responder list.
func (i *Incident) HasResponder(userID string) bool {
	return i.responderIndex(userID) >= 0
}

func (i *Incident) responderIndex(userID string) int {
	for idx, r := range i.Responders {
		if r.UserID == userID {
			return idx
		}
	}
	return -1
}

// AddResponder appends userID as en route. It enforces the same guards the
// store applies atomically: the incident must be active and the user absent.
func (i *Incident) AddResponder(userID string, at time.Time) (Responder, error) {
	if i.IsResolved() {
		return Responder{}, ErrIncidentResolved
	}
	if i.HasResponder(userID) {
		return Responder{}, ErrAlreadyResponding
	}
	r := Responder{UserID: userID, Progress: ProgressEnRoute, JoinedAt: at}
	i.Responders = append(i.Responders, r)
	return r, nil
}

// SetProgress changes an existing responder's progress.
func (i *Incident) SetProgress(userID string, p Progress) error {
	if !p.Valid() {
		return ErrInvalidProgress
	}
	if i.IsResolved() {
		return ErrIncidentResolved
	}
	idx := i.responderIndex(userID)
	if idx < 0 {
		return ErrResponderNotFound
	}
	i.Responders[idx].Progress = p
	return nil
}

// Resolve performs the single Active -> Resolved transition.
func (i *Incident) Resolve(requesterID string, at time.Time) error {
	if i.TriggeredBy != requesterID {
		return ErrNotTriggerer
	}
	if i.IsResolved() {
		return ErrIncidentResolved
	}
	i.Status = StatusResolved
	i.ResolvedAt = &at
	return nil
}

// IncidentSummary is the compact view pushed to nearby users.
type IncidentSummary struct {
	ID              string      `json:"id"`
	CrisisType      CrisisType  `json:"crisis_type"`
	Origin          Point       `json:"origin"`
	Radius          AlertRadius `json:"radius"`
	TriggeredBy     string      `json:"triggered_by"`
	TriggeredByName string      `json:"triggered_by_name"`
}

func (i *Incident) Summary() IncidentSummary {
	return IncidentSummary{
		ID:              i.ID,
		CrisisType:      i.CrisisType,
		Origin:          i.Origin,
		Radius:          i.Radius,
		TriggeredBy:     i.TriggeredBy,
		TriggeredByName: i.TriggeredByName,
	}
}

// IncidentStats aggregates counts for the administrative dashboard.
type IncidentStats struct {
	TotalIncidents    int64 `json:"total_incidents"`
	ActiveIncidents   int64 `json:"active_incidents"`
	ResolvedIncidents int64 `json:"resolved_incidents"`
	TodayIncidents    int64 `json:"today_incidents"`
	TotalUsers        int64 `json:"total_users"`
	SuspendedUsers    int64 `json:"suspended_users"`
}
