package search

import (
	"strings"
	"time"

	"github.com/klavins/tender-finder/internal/models"
)

// Deadline filter values accepted in search criteria.
const (
	DeadlineAll     = "all"
	DeadlineActive  = "active"
	DeadlineExpired = "expired"
)

// defaultStatuses is the allowed-status set applied when the caller leaves
// Statuses unset. An explicitly empty list is honored as-is and matches
// nothing.
var defaultStatuses = []string{"IZSLUDINĀTS"}

// SearchCriteria describes one search request. The zero value matches only
// announced notices with active or expired deadlines alike and, lacking
// keywords and CPV codes, selects nothing unless ShowAll is set.
type SearchCriteria struct {
	Keywords        []string `json:"keywords"`
	CPVCodes        []string `json:"cpv_codes"`
	ExcludeKeywords []string `json:"exclude_keywords"`
	Statuses        []string `json:"statuses"`
	ProcedureTypes  []string `json:"procedure_types"`
	DeadlineStatus  string   `json:"deadline_status"`
	ShowAll         bool     `json:"show_all"`
}

// Matches evaluates a record against the criteria. It returns whether the
// record is selected, plus the keywords and CPV codes that matched. Stages
// run in a fixed order: deadline, procedure type, status, then keyword/CPV
// selection, with exclusion keywords applied last. Exclusions fire even in
// ShowAll mode.
func (c SearchCriteria) Matches(rec *models.NoticeRecord, now time.Time) (bool, []string, []string) {
	switch c.DeadlineStatus {
	case DeadlineActive:
		if !deadlineActive(rec.Deadline, now) {
			return false, nil, nil
		}
	case DeadlineExpired:
		if deadlineActive(rec.Deadline, now) {
			return false, nil, nil
		}
	}

	if len(c.ProcedureTypes) > 0 && !containsString(c.ProcedureTypes, rec.ProcedureType) {
		return false, nil, nil
	}

	allowed := c.Statuses
	if allowed == nil {
		allowed = defaultStatuses
	}
	if rec.Status != "" && !containsString(allowed, rec.Status) {
		return false, nil, nil
	}

	text := strings.Join([]string{rec.Title, rec.Description, rec.Authority}, " ")

	var matchedKeywords, matchedCPV []string
	if !c.ShowAll {
		for _, kw := range c.Keywords {
			if ContainsKeyword(text, kw) {
				matchedKeywords = append(matchedKeywords, kw)
			}
		}
		for _, cpv := range c.CPVCodes {
			if clean := NormalizeCPV(cpv); containsString(rec.CPVCodes, clean) {
				matchedCPV = append(matchedCPV, clean)
			}
		}
		if len(matchedKeywords) == 0 && len(matchedCPV) == 0 {
			return false, nil, nil
		}
	}

	for _, ex := range c.ExcludeKeywords {
		if ContainsKeyword(text, ex) {
			return false, nil, nil
		}
	}

	return true, matchedKeywords, matchedCPV
}

// deadlineActive reports whether a normalized deadline has not yet passed.
// Records without a parseable deadline count as active.
func deadlineActive(deadline string, now time.Time) bool {
	if deadline == "" {
		return true
	}
	t, err := time.Parse("2006-01-02", deadline)
	if err != nil {
		return true
	}
	return !t.Before(now)
}
