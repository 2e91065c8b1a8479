package model

import "time"

// Task kinds. Events come from plain org timestamps, tasks from TODO
// headlines with SCHEDULED/DEADLINE planning.
const (
	KindTask  = "task"
	KindEvent = "event"
)

// Task is one extracted org record (task or event). Dates are stored as
// "YYYY-MM-DD" strings and times as "HH:MM" wall-clock strings; both are
// interpreted in the single configured process timezone. Three independent
// timestamp groups are carried: SCHEDULED, DEADLINE and the plain
// (event) timestamp.
type Task struct {
	ID    int64  `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Todo  string `db:"todo" json:"todo"`

	// Scheduled timestamp details.
	ScheduledStartDate string `db:"scheduled_start_date" json:"scheduled_start_date"`
	ScheduledStartTime string `db:"scheduled_start_time" json:"scheduled_start_time"`
	ScheduledEndDate   string `db:"scheduled_end_date" json:"scheduled_end_date"`
	ScheduledEndTime   string `db:"scheduled_end_time" json:"scheduled_end_time"`
	ScheduledAllDay    bool   `db:"scheduled_all_day" json:"scheduled_all_day"`
	// Repeater, e.g. "+1w": type "+", "++" or ".+", value 1, unit "w".
	ScheduledRepeaterType  string `db:"scheduled_repeater_type" json:"scheduled_repeater_type"`
	ScheduledRepeaterValue int    `db:"scheduled_repeater_value" json:"scheduled_repeater_value"`
	ScheduledRepeaterUnit  string `db:"scheduled_repeater_unit" json:"scheduled_repeater_unit"`
	// Warning, e.g. "-2d": type "-" (warning) or "--" (delay).
	ScheduledWarningType  string `db:"scheduled_warning_type" json:"scheduled_warning_type"`
	ScheduledWarningValue int    `db:"scheduled_warning_value" json:"scheduled_warning_value"`
	ScheduledWarningUnit  string `db:"scheduled_warning_unit" json:"scheduled_warning_unit"`

	// Deadline timestamp details.
	DeadlineStartDate     string `db:"deadline_start_date" json:"deadline_start_date"`
	DeadlineStartTime     string `db:"deadline_start_time" json:"deadline_start_time"`
	DeadlineEndDate       string `db:"deadline_end_date" json:"deadline_end_date"`
	DeadlineEndTime       string `db:"deadline_end_time" json:"deadline_end_time"`
	DeadlineAllDay        bool   `db:"deadline_all_day" json:"deadline_all_day"`
	DeadlineRepeaterType  string `db:"deadline_repeater_type" json:"deadline_repeater_type"`
	DeadlineRepeaterValue int    `db:"deadline_repeater_value" json:"deadline_repeater_value"`
	DeadlineRepeaterUnit  string `db:"deadline_repeater_unit" json:"deadline_repeater_unit"`
	DeadlineWarningType   string `db:"deadline_warning_type" json:"deadline_warning_type"`
	DeadlineWarningValue  int    `db:"deadline_warning_value" json:"deadline_warning_value"`
	DeadlineWarningUnit   string `db:"deadline_warning_unit" json:"deadline_warning_unit"`

	// Generic timestamp details (used for events).
	TsStartDate     string `db:"ts_start_date" json:"ts_start_date"`
	TsStartTime     string `db:"ts_start_time" json:"ts_start_time"`
	TsEndDate       string `db:"ts_end_date" json:"ts_end_date"`
	TsEndTime       string `db:"ts_end_time" json:"ts_end_time"`
	TsAllDay        bool   `db:"ts_all_day" json:"ts_all_day"`
	TsRepeaterType  string `db:"ts_repeater_type" json:"ts_repeater_type"`
	TsRepeaterValue int    `db:"ts_repeater_value" json:"ts_repeater_value"`
	TsRepeaterUnit  string `db:"ts_repeater_unit" json:"ts_repeater_unit"`
	TsWarningType   string `db:"ts_warning_type" json:"ts_warning_type"`
	TsWarningValue  int    `db:"ts_warning_value" json:"ts_warning_value"`
	TsWarningUnit   string `db:"ts_warning_unit" json:"ts_warning_unit"`

	// Other metadata.
	Tags      string    `db:"tags" json:"tags"`     // comma-joined, e.g. "work,personal"
	File      string    `db:"file" json:"file"`     // source org file path
	Parent    string    `db:"parent" json:"parent"` // parent headline, if any
	Kind      string    `db:"kind" json:"kind"`     // KindTask or KindEvent
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Snapshot statuses.
const (
	SnapshotSuccess = "success"
	SnapshotFailure = "failure"
)

// Snapshot records the outcome of one repository sync.
type Snapshot struct {
	ID         int64     `db:"id" json:"id"`
	CommitHash string    `db:"commit_hash" json:"commit_hash"`
	Status     string    `db:"status" json:"status"`
	Log        string    `db:"log" json:"log"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}
