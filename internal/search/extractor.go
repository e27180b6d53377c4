package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/klavins/tender-finder/internal/models"
)

// Candidate tag tables, one per field, ordered most-specific-first. The mix
// of cases reflects the feed: lowercase tags belong to the current EIS
// schema, uppercase ones to the older TED-style forms.
var (
	titleTags       = []string{"name", "TITLE", "CONTRACT_NAME", "OBJECT_DESCR", "SHORT_DESCR", "title", "contract_name"}
	descriptionTags = []string{"DESCRIPTION", "OBJECT_DESCRIPTION", "SHORT_DESC", "AC_PROCUREMENT_DOC", "description"}
	idTags          = []string{"procurement_code", "procurement_id", "NOTICE_NUMBER", "TED_NOTICE_NUMBER", "ID", "NO_DOC_OJS"}
	referenceTags   = []string{"FILE_REFERENCE_NUMBER", "REFERENCE_NUMBER", "REF_NOTICE"}

	authorityNameTags    = []string{"authority_name", "OFFICIALNAME", "NAME"}
	authoritySectionTags = []string{"CONTRACTING_AUTHORITY", "CONTRACTING_BODY", "CA_CE", "ADDR_CONTRACTING_BODY"}

	valueTags    = []string{"price", "VAL_TOTAL", "VALUE", "VAL_ESTIMATED_TOTAL", "COSTS_RANGE_AND_CURRENCY"}
	pubDateTags  = []string{"pub_date", "publication_date", "DATE_DISPATCH_NOTICE", "DATEPUB", "DATE_PUB"}
	deadlineTags = []string{"appeal_date", "DEADLINE_RECEIPT_TENDERS", "DATE_TENDER_VALID", "TIME_LIMIT", "deadline", "submit_date"}
	durationTags = []string{"DURATION", "DATE_START", "DATE_END"}

	cpvSectionTags = []string{"CPV_MAIN", "CPV_ADDITIONAL", "CPV_CODE", "ORIGINAL_CPV", "main_cpv"}

	awardSectionTags = []string{"AWARD_CONTRACT", "AWARDED_CONTRACT", "AWARD"}
)

// addressPartTags are joined with ", " when an authority section spells the
// address out field by field.
var addressPartTags = []string{"ADDRESS", "STREET", "TOWN", "POSTAL_CODE", "COUNTRY"}

// contactTags maps contact element names to the keys used in the record.
var contactTags = []struct{ tag, key string }{
	{"CONTACT_POINT", "contact_point"},
	{"PHONE", "phone"},
	{"E_MAIL", "email"},
	{"FAX", "fax"},
	{"URL", "url"},
	{"URL_BUYER", "buyer_profile"},
}

var (
	cpvPattern     = regexp.MustCompile(`^\d{8}(-\d)?$`)
	cpvBarePattern = regexp.MustCompile(`^\d{8}$`)
	digitPattern   = regexp.MustCompile(`\d`)
)

// NormalizeCPV strips the check-digit suffix from a CPV code. The operation
// is idempotent; strings without a dash come back unchanged.
func NormalizeCPV(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexByte(code, '-'); i >= 0 {
		return code[:i]
	}
	return code
}

// ExtractNotice runs every extraction pass over a parsed document and
// returns the populated record. A document that yields no recognizable
// fields still produces a record; it is the matcher's job to discard it.
func ExtractNotice(doc *Document) *models.NoticeRecord {
	rec := models.NewNoticeRecord()
	extractBasicInfo(doc, rec)
	extractAuthorityInfo(doc, rec)
	extractCPVCodes(doc, rec)
	extractFinancialInfo(doc, rec)
	extractDates(doc, rec)
	extractProcedureInfo(doc, rec)
	extractLots(doc, rec)
	extractAwardInfo(doc, rec)
	rec.Status = extractStatus(doc)
	rec.ProcedureCategory = ProcedureCategory(rec.ProcedureType)
	return rec
}

func extractBasicInfo(doc *Document, rec *models.NoticeRecord) {
	if n := doc.Find(titleTags...); n != nil {
		rec.Title = directText(n)
	}
	if n := doc.Find(descriptionTags...); n != nil {
		rec.Description = HTMLToText(directText(n))
	}
	if n := doc.Find(idTags...); n != nil {
		if text := directText(n); text != "" {
			rec.ID = text
			rec.IdentificationNumber = text
		}
	}
	if rec.ProcurementID == "" {
		if n := doc.Find(referenceTags...); n != nil {
			rec.ProcurementID = directText(n)
		}
	}
	if n := doc.Find("type"); n != nil {
		rec.RawType = directText(n)
	}
	if n := doc.Find("proc_type"); n != nil {
		rec.RawProcType = directText(n)
	}
}

func extractAuthorityInfo(doc *Document, rec *models.NoticeRecord) {
	for _, tag := range authorityNameTags {
		if n := doc.Find(tag); n != nil {
			if text := directText(n); text != "" {
				rec.Authority = text
				break
			}
		}
	}
	if n := doc.Find("address", "ADDRESS"); n != nil {
		rec.AuthorityAddress = directText(n)
	}

	for _, sectionTag := range authoritySectionTags {
		section := doc.Find(sectionTag)
		if section == nil {
			continue
		}
		if rec.Authority == "" {
			if n := findNamed(section, "OFFICIALNAME", "NAME"); n != nil {
				rec.Authority = directText(n)
			}
		}
		if rec.AuthorityAddress == "" {
			var parts []string
			for _, tag := range addressPartTags {
				if n := findNamed(section, tag); n != nil {
					if text := directText(n); text != "" {
						parts = append(parts, text)
					}
				}
			}
			if len(parts) > 0 {
				rec.AuthorityAddress = strings.Join(parts, ", ")
			}
		}
		for _, ct := range contactTags {
			if n := findNamed(section, ct.tag); n != nil {
				if text := directText(n); text != "" {
					rec.AuthorityContact[ct.key] = text
				}
			}
		}
		break
	}
}

func extractCPVCodes(doc *Document, rec *models.NoticeRecord) {
	// Simple <code> leaves anywhere in the document.
	walkElements(doc.Root(), func(n *xmlquery.Node) bool {
		if strings.ToLower(n.Data) != "code" {
			return true
		}
		text := directText(n)
		if !cpvPattern.MatchString(text) {
			return true
		}
		clean := NormalizeCPV(text)
		if containsString(rec.CPVCodes, clean) {
			return true
		}
		rec.CPVCodes = append(rec.CPVCodes, clean)
		if n.Parent != nil {
			if d := findNamed(n.Parent, "description", "DESCRIPTION"); d != nil {
				if text := directText(d); text != "" {
					rec.CPVDescriptions[clean] = text
				}
			}
		}
		return true
	})

	// Dedicated CPV container sections, matched by substring so that vendor
	// suffixes like CPV_MAIN_2 still hit.
	for _, sectionTag := range cpvSectionTags {
		sectionLower := strings.ToLower(sectionTag)
		walkElements(doc.Root(), func(n *xmlquery.Node) bool {
			if !strings.Contains(strings.ToLower(n.Data), sectionLower) {
				return true
			}
			codeElem := findNamed(n, "CODE", "code")
			if codeElem == nil {
				return true
			}
			code := NormalizeCPV(directText(codeElem))
			if !cpvBarePattern.MatchString(code) || containsString(rec.CPVCodes, code) {
				return true
			}
			rec.CPVCodes = append(rec.CPVCodes, code)
			if d := findNamed(n, "DESCRIPTION", "description"); d != nil {
				if text := directText(d); text != "" {
					rec.CPVDescriptions[code] = text
				}
			}
			return true
		})
	}
}

func extractFinancialInfo(doc *Document, rec *models.NoticeRecord) {
	for _, tag := range valueTags {
		n := doc.Find(tag)
		if n == nil {
			continue
		}
		if curr := elementAttr(n, "CURRENCY", "currency"); curr != "" {
			rec.Currency = curr
		} else if c := doc.Find("currency", "CURRENCY"); c != nil {
			rec.Currency = directText(c)
		}
		if text := directText(n); text != "" {
			rec.Value = text
		} else {
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type != xmlquery.ElementNode {
					continue
				}
				if text := directText(child); digitPattern.MatchString(text) {
					rec.Value = text
					break
				}
			}
		}
		break
	}

	if n := doc.Find("VAL_RANGE_TOTAL_MIN", "LOWEST_OFFER"); n != nil {
		rec.ValueMin = directText(n)
	}
	if n := doc.Find("VAL_RANGE_TOTAL_MAX", "HIGHEST_OFFER"); n != nil {
		rec.ValueMax = directText(n)
	}
}

func extractDates(doc *Document, rec *models.NoticeRecord) {
	if n := doc.Find(pubDateTags...); n != nil {
		if text := directText(n); text != "" {
			rec.PublicationDate = NormalizeDate(text)
		}
	}

	if n := doc.Find(deadlineTags...); n != nil {
		dateText := directText(n)
		if t := findNamed(n, "TIME"); t != nil {
			if timeText := directText(t); timeText != "" {
				dateText += " " + timeText
			}
		}
		if dateText = strings.TrimSpace(dateText); dateText != "" {
			rec.Deadline = NormalizeDate(dateText)
		}
	}

	if n := doc.Find("appeal_date"); n != nil {
		if text := directText(n); text != "" {
			rec.AppealDate = NormalizeDate(text)
			if rec.Deadline == "" {
				rec.Deadline = rec.AppealDate
			}
		}
	}

	var duration []string
	for _, tag := range durationTags {
		if n := doc.Find(tag); n != nil {
			if text := directText(n); text != "" {
				duration = append(duration, tag+": "+text)
			}
		}
	}
	rec.Duration = strings.Join(duration, "; ")
}

func extractProcedureInfo(doc *Document, rec *models.NoticeRecord) {
	if rec.RawProcType != "" {
		rec.ProcedureType = ProcedureTypeName(rec.RawProcType)
	} else {
		for _, tag := range []string{"TYPE_PROCEDURE", "PT_OPEN", "PT_RESTRICTED", "PT_NEGOTIATED"} {
			n := doc.Find(tag)
			if n == nil {
				continue
			}
			if text := directText(n); text != "" {
				rec.ProcedureType = text
			} else {
				// Marker element without text; derive a label from the tag.
				label := strings.ReplaceAll(strings.TrimPrefix(tag, "PT_"), "_", " ")
				rec.ProcedureType = titleCase(label)
			}
			break
		}
	}

	if rec.RawType != "" {
		rec.NoticeType = NoticeTypeName(rec.RawType)
	} else if n := doc.Find("NOTICE_TYPE", "TD_DOCUMENT_TYPE", "FORM_SECTION"); n != nil {
		if text := directText(n); text != "" {
			rec.NoticeType = text
		}
	}

	if n := doc.Find("AWARD_CRITERIA", "AC_CRITERIA"); n != nil {
		walkElements(n, func(crit *xmlquery.Node) bool {
			if text := directText(crit); len([]rune(text)) > 3 {
				rec.AwardCriteria = appendUnique(rec.AwardCriteria, text)
			}
			return true
		})
	}
}

func extractLots(doc *Document, rec *models.NoticeRecord) {
	sections := findAllNamed(doc.Root(), "LOT")
	if len(sections) == 0 {
		sections = findAllNamed(doc.Root(), "OBJECT_DESCR")
	}

	for i, section := range sections {
		lot := models.Lot{Number: strconv.Itoa(i + 1), CPVCodes: []string{}}
		if n := findNamed(section, "LOT_NUMBER", "LOT_NO"); n != nil {
			if text := directText(n); text != "" {
				lot.Number = text
			}
		}
		if n := findNamed(section, "TITLE", "LOT_TITLE"); n != nil {
			lot.Title = directText(n)
		}
		for _, cpvElem := range findAllNamed(section, "CPV_CODE") {
			if code := findNamed(cpvElem, "CODE"); code != nil {
				if text := NormalizeCPV(directText(code)); text != "" {
					lot.CPVCodes = append(lot.CPVCodes, text)
				}
			}
		}
		if n := findNamed(section, "VAL_OBJECT", "VALUE"); n != nil {
			lot.Value = directText(n)
		}
		if lot.Title != "" || len(lot.CPVCodes) > 0 {
			rec.Lots = append(rec.Lots, lot)
		}
	}
}

func extractAwardInfo(doc *Document, rec *models.NoticeRecord) {
	if list := doc.Find("winner_list"); list != nil {
		if winner := findNamed(list, "winner"); winner != nil {
			if n := findNamed(winner, "winner_name"); n != nil {
				rec.Award.Contractor = directText(n)
			}
			if n := findNamed(winner, "winner_reg_num"); n != nil {
				rec.Award.ContractorRegNum = directText(n)
			}
			if n := findNamed(winner, "winner_address"); n != nil {
				rec.Award.ContractorAddress = directText(n)
			}
		}
	}

	for _, sectionTag := range awardSectionTags {
		section := doc.Find(sectionTag)
		if section == nil {
			continue
		}
		if rec.Award.Contractor == "" {
			if contractor := findNamed(section, "CONTRACTOR", "AWARDED_TO"); contractor != nil {
				if n := findNamed(contractor, "OFFICIALNAME", "NAME"); n != nil {
					rec.Award.Contractor = directText(n)
				}
			}
		}
		if n := findNamed(section, "DATE_CONCLUSION_CONTRACT", "DATE_AWARD"); n != nil {
			if text := directText(n); text != "" {
				rec.Award.AwardDate = NormalizeDate(text)
			}
		}
		if n := findNamed(section, "VAL_TOTAL", "VALUE"); n != nil {
			rec.Award.ContractValue = directText(n)
		}
		break
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
