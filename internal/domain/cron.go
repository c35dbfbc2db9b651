package domain

// ScheduleKind tags which schedule variant a CronJob carries.
type ScheduleKind string

const (
	ScheduleAt    ScheduleKind = "at"
	ScheduleEvery ScheduleKind = "every"
	ScheduleCron  ScheduleKind = "cron"
)

// Schedule is a tagged variant over the three schedule kinds spec §4.E
// defines. Only the fields relevant to Kind are meaningful.
type Schedule struct {
	Kind      ScheduleKind `json:"kind"`
	AtMS      int64        `json:"atMs,omitempty"`
	PeriodMS  int64        `json:"periodMs,omitempty"`
	AnchorMS  int64        `json:"anchorMs,omitempty"`
	CronExpr  string       `json:"cronExpr,omitempty"`
	CronTZ    string       `json:"cronTz,omitempty"` // accepted, not honored (spec §9 open question)
}

// PayloadKind tags which job body a CronJob carries.
type PayloadKind string

const (
	PayloadAlertScan     PayloadKind = "alertScan"
	PayloadAlertSingle   PayloadKind = "alertSingle"
	PayloadMarketCheck   PayloadKind = "marketCheck"
	PayloadPortfolioSync PayloadKind = "portfolioSync"
	PayloadDailyDigest   PayloadKind = "dailyDigest"
	PayloadStopLossScan  PayloadKind = "stopLossScan"
	PayloadAgentTurn     PayloadKind = "agentTurn"
	PayloadSystemEvent   PayloadKind = "systemEvent"
)

// Payload is a tagged variant dispatched by the scheduler to the
// matching engine. Unknown kinds are forward-compatible no-ops (spec §7).
type Payload struct {
	Kind         PayloadKind `json:"kind"`
	AlertID      string      `json:"alertId,omitempty"`
	MarketID     string      `json:"marketId,omitempty"`
	Platform     Venue       `json:"platform,omitempty"`
	AgentSession string      `json:"agentSession,omitempty"`
	Text         string      `json:"text,omitempty"`
}

// JobStatus is the outcome of the most recent run.
type JobStatus string

const (
	JobStatusOK      JobStatus = "ok"
	JobStatusError   JobStatus = "error"
	JobStatusSkipped JobStatus = "skipped"
)

// SessionTarget tells a job which session/channel to act through, when
// relevant (e.g. AgentTurn). Opaque to the scheduler itself.
type SessionTarget struct {
	Channel Channel `json:"channel,omitempty"`
	ChatID  string  `json:"chatId,omitempty"`
}

// WakeMode distinguishes jobs that should wake a dormant agent session
// versus ones that run headless. Opaque to the scheduler.
type WakeMode string

const (
	WakeModeNone   WakeMode = "none"
	WakeModeNotify WakeMode = "notify"
)

// JobState is the mutable run-state of a CronJob, persisted after every
// transition.
type JobState struct {
	NextRunAtMS  *int64    `json:"nextRunAtMs,omitempty"`
	RunningAtMS  *int64    `json:"runningAtMs,omitempty"`
	LastRunAtMS  *int64    `json:"lastRunAtMs,omitempty"`
	LastStatus   JobStatus `json:"lastStatus,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	LastDurationMS int64   `json:"lastDurationMs,omitempty"`
}

// CronJob is a row in the persistent job table the Scheduler owns.
type CronJob struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Enabled        bool          `json:"enabled"`
	Schedule       Schedule      `json:"schedule"`
	SessionTarget  SessionTarget `json:"sessionTarget"`
	WakeMode       WakeMode      `json:"wakeMode"`
	Payload        Payload       `json:"payload"`
	State          JobState      `json:"state"`
	DeleteAfterRun bool          `json:"deleteAfterRun,omitempty"`
}

// JobRun is one append-only entry in a job's run history, a supplement
// beyond spec.md used for lifecycle visibility (SPEC_FULL §4).
type JobRun struct {
	JobID      string    `json:"jobId"`
	StartedAt  int64     `json:"startedAtMs"`
	DurationMS int64     `json:"durationMs"`
	Status     JobStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
}
