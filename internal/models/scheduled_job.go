package models

// ScheduledJob describes one periodic background task: which handler runs
// it, its cron schedule and per-run timeout, plus free-form configuration.
type ScheduledJob struct {
	Name           string
	Slug           string
	Handler        string
	Schedule       string
	TimeoutSeconds int
	Config         map[string]any
}
