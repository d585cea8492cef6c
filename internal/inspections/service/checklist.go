package service

import (
	"sort"
	"strings"

	"vehicle_inspection_backend/internal/inspections/repository"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/sanitize"
)

// Checks every submission must report.
var requiredChecks = []string{"brakes", "lights", "tires", "emissions"}

// Checks that default to pass when omitted.
var optionalChecks = []string{"windscreen", "seatbelts", "horn", "wipers"}

const maxCheckNoteLength = 200

// NormalizeChecklist lower-cases check names and results, fills optional
// checks with pass and rejects unknown names or results.
func NormalizeChecklist(in repository.Checklist) (repository.Checklist, error) {
	known := make(map[string]bool, len(requiredChecks)+len(optionalChecks))
	for _, name := range requiredChecks {
		known[name] = true
	}
	for _, name := range optionalChecks {
		known[name] = true
	}

	out := make(repository.Checklist, len(known))
	var unknown []string
	for rawName, result := range in {
		name := strings.ToLower(strings.TrimSpace(rawName))
		if !known[name] {
			unknown = append(unknown, rawName)
			continue
		}
		status := strings.ToLower(strings.TrimSpace(result.Status))
		if status != repository.CheckPass && status != repository.CheckFail {
			return nil, apperr.Validation("check " + name + " must be pass or fail")
		}
		note := sanitize.Truncate(sanitize.Text(result.Note), maxCheckNoteLength)
		out[name] = repository.CheckResult{Status: status, Note: note}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperr.Validation("unknown checks: " + strings.Join(unknown, ", "))
	}

	var missing []string
	for _, name := range requiredChecks {
		if _, ok := out[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing checks: " + strings.Join(missing, ", "))
	}

	for _, name := range optionalChecks {
		if _, ok := out[name]; !ok {
			out[name] = repository.CheckResult{Status: repository.CheckPass}
		}
	}
	return out, nil
}

// IsVerdict reports whether status is a valid final status.
func IsVerdict(status string) bool {
	switch status {
	case repository.StatusPassed, repository.StatusPassedWithMinorIssues, repository.StatusFailed:
		return true
	}
	return false
}
