package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Skill is a capability a volunteer advertises to requesters.
type Skill string

const (
	SkillCPR         Skill = "CPR"
	SkillDoctor      Skill = "Doctor"
	SkillNurse       Skill = "Nurse"
	SkillFirefighter Skill = "Firefighter"
	SkillMechanic    Skill = "Mechanic"
	SkillOther       Skill = "Other"
)

var Skills = []Skill{SkillCPR, SkillDoctor, SkillNurse, SkillFirefighter, SkillMechanic, SkillOther}

func (s Skill) Valid() bool {
	for _, k := range Skills {
		if s == k {
			return true
		}
	}
	return false
}

// User models an account as seen by the coordination core. Identity and
// credentials belong to the auth collaborator; this package only reads and
// writes the operational fields.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Skills          []Skill   `json:"skills"`
	Location        *Point    `json:"location,omitempty"`
	TrustScore      int       `json:"trust_score"`
	FalseAlertCount int       `json:"false_alert_count"`
	Suspended       bool      `json:"suspended"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicProfile is the subset of a user exposed to other participants.
type PublicProfile struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Skills     []Skill `json:"skills"`
	TrustScore int     `json:"trust_score"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Skills: u.Skills, TrustScore: u.TrustScore}
}

// NearbyUser is a proximity match, ordered nearest first by the index.
type NearbyUser struct {
	PublicProfile
	DistanceMeters float64 `json:"distance_m"`
}

// NearbyIncident is an active incident returned by a proximity query.
type NearbyIncident struct {
	IncidentSummary
	DistanceMeters float64 `json:"distance_m"`
}
