// Package orgimport turns org files into records by running the external
// extraction subprocess (Emacs in batch mode) and decoding its JSON output.
// The extractor itself is an external collaborator; this package only owns
// the subprocess call and the decoding.
package orgimport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

var logger = appLog.Named("import")

// ExtractAll runs the extraction command for every configured org file and
// returns the combined record list. Any file failing to extract fails the
// whole import; the store keeps its previous contents in that case.
func ExtractAll(ctx context.Context, cfg *config.Config) ([]model.Task, error) {
	var all []model.Task
	for _, path := range cfg.OrgPaths() {
		tasks, err := ExtractFile(ctx, cfg.ExtractCommand, path)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", path, err)
		}
		logger.Info("org file extracted", "file", path, "records", len(tasks))
		all = append(all, tasks...)
	}
	return all, nil
}

// ExtractFile runs the extraction command with the org file path appended as
// the final argument and decodes the JSON array it prints on stdout.
func ExtractFile(ctx context.Context, command []string, path string) ([]model.Task, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("extract command is not configured")
	}

	args := append(append([]string{}, command[1:]...), path)
	cmd := exec.CommandContext(ctx, command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w (stderr: %s)",
			command[0], err, strings.TrimSpace(stderr.String()))
	}

	tasks, err := DecodeTasks(&stdout)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].File == "" {
			tasks[i].File = path
		}
	}
	return tasks, nil
}

// DecodeTasks decodes the extractor's JSON array into records.
func DecodeTasks(r io.Reader) ([]model.Task, error) {
	var raw []rawTask
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding extractor output: %w", err)
	}
	out := make([]model.Task, 0, len(raw))
	for _, rt := range raw {
		out = append(out, rt.toTask())
	}
	return out, nil
}

// rawTask mirrors the extractor's JSON shape. The generic timestamp group is
// keyed "timestamp_*" on the wire and stored as ts_* columns.
type rawTask struct {
	Title  string   `json:"title"`
	Todo   string   `json:"todo"`
	Tags   flexTags `json:"tags"`
	File   string   `json:"file"`
	Parent string   `json:"parent"`
	Kind   string   `json:"kind"`

	ScheduledStartDate     string `json:"scheduled_start_date"`
	ScheduledStartTime     string `json:"scheduled_start_time"`
	ScheduledEndDate       string `json:"scheduled_end_date"`
	ScheduledEndTime       string `json:"scheduled_end_time"`
	ScheduledAllDay        bool   `json:"scheduled_all_day"`
	ScheduledRepeaterType  string `json:"scheduled_repeater_type"`
	ScheduledRepeaterValue int    `json:"scheduled_repeater_value"`
	ScheduledRepeaterUnit  string `json:"scheduled_repeater_unit"`
	ScheduledWarningType   string `json:"scheduled_warning_type"`
	ScheduledWarningValue  int    `json:"scheduled_warning_value"`
	ScheduledWarningUnit   string `json:"scheduled_warning_unit"`

	DeadlineStartDate     string `json:"deadline_start_date"`
	DeadlineStartTime     string `json:"deadline_start_time"`
	DeadlineEndDate       string `json:"deadline_end_date"`
	DeadlineEndTime       string `json:"deadline_end_time"`
	DeadlineAllDay        bool   `json:"deadline_all_day"`
	DeadlineRepeaterType  string `json:"deadline_repeater_type"`
	DeadlineRepeaterValue int    `json:"deadline_repeater_value"`
	DeadlineRepeaterUnit  string `json:"deadline_repeater_unit"`
	DeadlineWarningType   string `json:"deadline_warning_type"`
	DeadlineWarningValue  int    `json:"deadline_warning_value"`
	DeadlineWarningUnit   string `json:"deadline_warning_unit"`

	TsStartDate     string `json:"timestamp_start_date"`
	TsStartTime     string `json:"timestamp_start_time"`
	TsEndDate       string `json:"timestamp_end_date"`
	TsEndTime       string `json:"timestamp_end_time"`
	TsAllDay        bool   `json:"timestamp_all_day"`
	TsRepeaterType  string `json:"timestamp_repeater_type"`
	TsRepeaterValue int    `json:"timestamp_repeater_value"`
	TsRepeaterUnit  string `json:"timestamp_repeater_unit"`
	TsWarningType   string `json:"timestamp_warning_type"`
	TsWarningValue  int    `json:"timestamp_warning_value"`
	TsWarningUnit   string `json:"timestamp_warning_unit"`
}

func (rt rawTask) toTask() model.Task {
	kind := rt.Kind
	if kind == "" {
		kind = model.KindTask
	}
	return model.Task{
		Title:  rt.Title,
		Todo:   rt.Todo,
		Tags:   string(rt.Tags),
		File:   rt.File,
		Parent: rt.Parent,
		Kind:   kind,

		ScheduledStartDate:     rt.ScheduledStartDate,
		ScheduledStartTime:     rt.ScheduledStartTime,
		ScheduledEndDate:       rt.ScheduledEndDate,
		ScheduledEndTime:       rt.ScheduledEndTime,
		ScheduledAllDay:        rt.ScheduledAllDay,
		ScheduledRepeaterType:  rt.ScheduledRepeaterType,
		ScheduledRepeaterValue: rt.ScheduledRepeaterValue,
		ScheduledRepeaterUnit:  rt.ScheduledRepeaterUnit,
		ScheduledWarningType:   rt.ScheduledWarningType,
		ScheduledWarningValue:  rt.ScheduledWarningValue,
		ScheduledWarningUnit:   rt.ScheduledWarningUnit,

		DeadlineStartDate:     rt.DeadlineStartDate,
		DeadlineStartTime:     rt.DeadlineStartTime,
		DeadlineEndDate:       rt.DeadlineEndDate,
		DeadlineEndTime:       rt.DeadlineEndTime,
		DeadlineAllDay:        rt.DeadlineAllDay,
		DeadlineRepeaterType:  rt.DeadlineRepeaterType,
		DeadlineRepeaterValue: rt.DeadlineRepeaterValue,
		DeadlineRepeaterUnit:  rt.DeadlineRepeaterUnit,
		DeadlineWarningType:   rt.DeadlineWarningType,
		DeadlineWarningValue:  rt.DeadlineWarningValue,
		DeadlineWarningUnit:   rt.DeadlineWarningUnit,

		TsStartDate:     rt.TsStartDate,
		TsStartTime:     rt.TsStartTime,
		TsEndDate:       rt.TsEndDate,
		TsEndTime:       rt.TsEndTime,
		TsAllDay:        rt.TsAllDay,
		TsRepeaterType:  rt.TsRepeaterType,
		TsRepeaterValue: rt.TsRepeaterValue,
		TsRepeaterUnit:  rt.TsRepeaterUnit,
		TsWarningType:   rt.TsWarningType,
		TsWarningValue:  rt.TsWarningValue,
		TsWarningUnit:   rt.TsWarningUnit,
	}
}

// flexTags accepts the tag field as either a JSON array of strings or a
// single pre-joined string, and normalizes to the comma-joined form.
type flexTags string

func (f *flexTags) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*f = flexTags(strings.Join(list, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexTags(s)
	return nil
}
