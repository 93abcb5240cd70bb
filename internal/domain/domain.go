package domain

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	AuthProvider string `json:"authProvider,omitempty"`
	AvatarURL    string `json:"avatar,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	CreatedAt    string `json:"createdAt" format:"date-time"`
	UpdatedAt    string `json:"updatedAt" format:"date-time"`

	PasswordHash string `json:"-"`
}

type Vision struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	LongTermVision string `json:"longTermVision,omitempty"`
	MidTermVision  string `json:"midTermVision,omitempty"`
	UpdatedAt      string `json:"updatedAt" format:"date-time"`
}

// Cycle is a 12-week planning period. StartDate is a calendar date
// (YYYY-MM-DD), midnight-anchored.
type Cycle struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	StartDate string `json:"startDate" format:"date"`
	EndDate   string `json:"endDate,omitempty" format:"date"`
	Status    string `json:"status" enum:"upcoming,active,completed"`
	CreatedAt string `json:"createdAt" format:"date-time"`
}

type Goal struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	CycleID      string   `json:"cycleId"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	TargetMetric string   `json:"targetMetric,omitempty"`
	TargetValue  *float64 `json:"targetValue,omitempty"`
	CurrentValue *float64 `json:"currentValue,omitempty"`
	Status       string   `json:"status" enum:"active,completed,abandoned"`
	CreatedAt    string   `json:"createdAt" format:"date-time"`
	UpdatedAt    string   `json:"updatedAt" format:"date-time"`
}

type Tactic struct {
	ID             string `json:"id"`
	GoalID         string `json:"goalId"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Frequency      string `json:"frequency" enum:"daily,weekly,specific"`
	FrequencyCount int    `json:"frequencyCount"`
	CreatedAt      string `json:"createdAt" format:"date-time"`
}

// WeeklyTask is one planned unit of work for a tactic in a specific week
// of a cycle. CompletedAt is set iff Status is completed.
type WeeklyTask struct {
	ID          string  `json:"id"`
	TacticID    string  `json:"tacticId"`
	UserID      string  `json:"userId"`
	CycleID     string  `json:"cycleId"`
	WeekNumber  int     `json:"weekNumber" minimum:"1" maximum:"12"`
	Status      string  `json:"status" enum:"pending,completed,skipped"`
	Notes       string  `json:"notes,omitempty"`
	CompletedAt *string `json:"completedAt,omitempty" format:"date-time"`
	CreatedAt   string  `json:"createdAt" format:"date-time"`

	// Populated by joined list queries only.
	TacticTitle string `json:"tacticTitle,omitempty"`
	GoalTitle   string `json:"goalTitle,omitempty"`
}

// Scorecard is the persisted execution score for one (user, cycle, week)
// triple. At most one row exists per triple. ID and CreatedAt are empty on
// computed-on-read scorecards that were never persisted, so they are
// omitted there; Reflection is always present, null until set.
type Scorecard struct {
	ID             string  `json:"id,omitempty"`
	UserID         string  `json:"userId"`
	CycleID        string  `json:"cycleId"`
	WeekNumber     int     `json:"weekNumber"`
	PlannedTasks   int     `json:"plannedTasks"`
	CompletedTasks int     `json:"completedTasks"`
	ExecutionScore int     `json:"executionScore"`
	Reflection     *string `json:"reflection"`
	CreatedAt      string  `json:"createdAt,omitempty" format:"date-time"`
}

type Partner struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	PartnerID string `json:"partnerId"`
	Status    string `json:"status" enum:"pending,accepted"`
	CreatedAt string `json:"createdAt" format:"date-time"`

	// Populated by joined list queries only.
	PartnerName   string `json:"partnerName,omitempty"`
	PartnerEmail  string `json:"partnerEmail,omitempty"`
	PartnerAvatar string `json:"partnerAvatar,omitempty"`
}

// Meeting records a weekly accountability meeting with a partner.
type Meeting struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	PartnerID   *string  `json:"partnerId,omitempty"`
	CycleID     string   `json:"cycleId"`
	WeekNumber  int      `json:"weekNumber"`
	MeetingDate *string  `json:"meetingDate,omitempty" format:"date"`
	Commitments []string `json:"commitments,omitempty"`
	ReviewNotes string   `json:"reviewNotes,omitempty"`
	CreatedAt   string   `json:"createdAt" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"keyHash"`
	CreatedAt string `json:"createdAt" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId,omitempty"`
	Payload    string `json:"payload"`
}
