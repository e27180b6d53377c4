package search

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// Procedure category buckets derived from the Latvian procedure description.
const (
	CategoryAboveThreshold = "above-threshold"
	CategoryBelowThreshold = "below-threshold"
	CategorySpecialSector  = "special-sector"
	CategoryOther          = "other"
)

// procTypeCodes maps the numeric proc_type codes used by the feed to
// symbolic procedure keys.
var procTypeCodes = map[string]string{
	"1":   "open",
	"2":   "restricted",
	"3":   "negotiated",
	"4":   "competitive_dialogue",
	"5":   "competitive_negotiation",
	"6":   "innovation",
	"7":   "negotiated_below",
	"8":   "design_contest",
	"101": "open_below",
	"102": "restricted_below",
	"201": "sps_open",
	"202": "sps_restricted",
	"203": "sps_negotiated",
	"301": "price_survey",
	"302": "small_purchase",
}

// procedureTypeNames maps symbolic procedure keys to the Latvian descriptions
// used by the publications agency.
var procedureTypeNames = map[string]string{
	// PIL procedures above the EU thresholds
	"open":                    "Atklāts konkurss virs ES sliekšņiem",
	"restricted":              "Slēgts konkurss virs ES sliekšņiem",
	"negotiated":              "Sarunu procedūra virs ES sliekšņiem",
	"competitive_dialogue":    "Konkursa dialogs virs ES sliekšņiem",
	"competitive_negotiation": "Konkursa procedūra ar sarunām virs ES sliekšņiem",
	"innovation":              "Inovāciju partnerības procedūra virs ES sliekšņiem",

	// PIL procedures below the EU thresholds
	"open_below":       "Atklāts konkurss zem ES sliekšņiem",
	"restricted_below": "Slēgts konkurss zem ES sliekšņiem",
	"negotiated_below": "Sarunu procedūra zem ES sliekšņiem",

	// SPSIL (utilities sector) procedures
	"sps_open":       "SPSIL atklāts konkurss",
	"sps_restricted": "SPSIL slēgts konkurss",
	"sps_negotiated": "SPSIL sarunu procedūra",

	// Other
	"price_survey":   "Cenu aptauja",
	"small_purchase": "Mazie iepirkumi",
	"design_contest": "Metu konkurss",
	"framework":      "Vispārīgā vienošanās",

	"unknown": "Nav norādīts",
}

// noticeTypeNames maps the feed's type attribute values to Latvian notice
// type descriptions. Unmapped values pass through untranslated.
var noticeTypeNames = map[string]string{
	"general":            "Paziņojums par līgumu",
	"general_planning":   "Iepriekšējs informatīvs paziņojums",
	"general_result":     "Paziņojums par līguma slēgšanas tiesību piešķiršanu",
	"general_change":     "Paziņojums par grozījumiem",
	"general_cancel":     "Paziņojums par procedūras izbeigšanu",
	"utilities":          "Sabiedrisko pakalpojumu paziņojums",
	"utilities_planning": "Sabiedrisko pakalpojumu iepriekšējs informatīvs paziņojums",
	"utilities_result":   "Sabiedrisko pakalpojumu rezultātu paziņojums",
	"defence":            "Aizsardzības un drošības paziņojums",
	"concession":         "Koncesijas paziņojums",
	"design_contest":     "Paziņojums par metu konkursu",
	"voluntary":          "Brīvprātīgs ex ante caurspīdīguma paziņojums",
	"qualification":      "Paziņojums par kvalifikācijas sistēmu",
}

// KnownStatuses lists the status values records can carry, in the order the
// UI presents them.
var KnownStatuses = []string{
	"IZSLUDINĀTS",
	"PIEDĀVĀJUMI ATVĒRTI",
	"LĪGUMS NOSLĒGTS",
	"IZBEIGTS-PĀRTRAUKTS",
}

// statusBuckets maps each canonical status to the markers that signal it.
// Order matters: buckets are checked top to bottom.
var statusBuckets = []struct {
	status  string
	markers []string
}{
	{"IZSLUDINĀTS", []string{"IZSLUDINĀTS", "PUBLISHED", "ACTIVE"}},
	{"PIEDĀVĀJUMI ATVĒRTI", []string{"PIEDĀVĀJUMI ATVĒRTI", "OFFERS_OPENED"}},
	{"LĪGUMS NOSLĒGTS", []string{"LĪGUMS NOSLĒGTS", "CONTRACT_AWARDED", "AWARDED"}},
	{"IZBEIGTS-PĀRTRAUKTS", []string{"IZBEIGTS", "PĀRTRAUKTS", "CANCELLED", "TERMINATED"}},
}

// ProcedureTypeName resolves a numeric proc_type code to its Latvian
// description, falling back to "Nav norādīts".
func ProcedureTypeName(code string) string {
	key, ok := procTypeCodes[code]
	if !ok {
		key = "unknown"
	}
	name, ok := procedureTypeNames[key]
	if !ok {
		return procedureTypeNames["unknown"]
	}
	return name
}

// NoticeTypeName resolves a raw notice type value, passing unknown values
// through unchanged.
func NoticeTypeName(raw string) string {
	if name, ok := noticeTypeNames[raw]; ok {
		return name
	}
	return raw
}

// ProcedureCategory buckets a procedure description by EU threshold regime.
func ProcedureCategory(procedureType string) string {
	switch {
	case strings.Contains(procedureType, "virs ES sliekšņiem"):
		return CategoryAboveThreshold
	case strings.Contains(procedureType, "zem ES sliekšņiem"):
		return CategoryBelowThreshold
	case strings.Contains(procedureType, "SPSIL"):
		return CategorySpecialSector
	default:
		return CategoryOther
	}
}

// ProcedureGroups returns the known procedure descriptions grouped by
// threshold category, for the configuration endpoint.
func ProcedureGroups() map[string][]string {
	groups := map[string][]string{
		CategoryAboveThreshold: {},
		CategoryBelowThreshold: {},
		CategorySpecialSector:  {},
		CategoryOther:          {},
	}
	// Iterate codes in a stable order so the groups come out deterministic.
	order := []string{
		"open", "restricted", "negotiated", "competitive_dialogue",
		"competitive_negotiation", "innovation",
		"open_below", "restricted_below", "negotiated_below",
		"sps_open", "sps_restricted", "sps_negotiated",
		"price_survey", "small_purchase", "design_contest", "framework",
	}
	for _, key := range order {
		name := procedureTypeNames[key]
		cat := ProcedureCategory(name)
		groups[cat] = append(groups[cat], name)
	}
	return groups
}

// extractStatus derives the notice status. Elements whose local name contains
// "status" are checked first; failing that the whole document text is
// scanned. Unresolvable documents default to the announced status.
func extractStatus(doc *Document) string {
	var found string
	walkElements(doc.Root(), func(n *xmlquery.Node) bool {
		if !strings.Contains(strings.ToLower(n.Data), "status") {
			return true
		}
		text := directText(n)
		if text == "" {
			return true
		}
		if status := matchStatusMarkers(strings.ToUpper(text)); status != "" {
			found = status
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	var b strings.Builder
	walkElements(doc.Root(), func(n *xmlquery.Node) bool {
		if text := directText(n); text != "" {
			b.WriteString(text)
			b.WriteByte(' ')
		}
		return true
	})
	if status := matchStatusMarkers(strings.ToUpper(b.String())); status != "" {
		return status
	}

	return "IZSLUDINĀTS"
}

func matchStatusMarkers(textUpper string) string {
	for _, bucket := range statusBuckets {
		for _, marker := range bucket.markers {
			if strings.Contains(textUpper, marker) {
				return bucket.status
			}
		}
	}
	return ""
}
