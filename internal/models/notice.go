package models

// NoticeRecord is the canonical extracted representation of one procurement
// notice document. Every field is always present in the serialized form:
// absent fields are empty strings, empty slices or empty maps, never null.
type NoticeRecord struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Authority        string            `json:"authority"`
	AuthorityAddress string            `json:"authority_address"`
	AuthorityContact map[string]string `json:"authority_contact"`

	CPVCodes        []string          `json:"cpv_codes"`
	CPVDescriptions map[string]string `json:"cpv_descriptions"`

	Value    string `json:"value"`
	ValueMin string `json:"value_min"`
	ValueMax string `json:"value_max"`
	Currency string `json:"currency"`

	PublicationDate string `json:"publication_date"`
	Deadline        string `json:"deadline"`
	AppealDate      string `json:"appeal_date"`

	ID                   string `json:"id"`
	IdentificationNumber string `json:"identification_number"`
	ProcurementID        string `json:"procurement_id"`

	NoticeType        string `json:"notice_type"`
	RawType           string `json:"raw_type"`
	RawProcType       string `json:"raw_proc_type"`
	ProcedureType     string `json:"procedure_type"`
	ProcedureCategory string `json:"procedure_category"`

	Status        string   `json:"status"`
	Duration      string   `json:"duration"`
	AwardCriteria []string `json:"award_criteria"`

	Lots  []Lot     `json:"lots"`
	Award AwardInfo `json:"award_info"`

	MatchedKeywords []string `json:"matched_keywords"`
	MatchedCPV      []string `json:"matched_cpv"`

	SourceFile string `json:"source_file"`
	SourceDate string `json:"source_date"`
}

// Lot is one sub-division of a notice's subject matter.
type Lot struct {
	Number   string   `json:"number"`
	Title    string   `json:"title"`
	CPVCodes []string `json:"cpv_codes"`
	Value    string   `json:"value"`
}

// AwardInfo carries contract-award details when the notice reports a result.
type AwardInfo struct {
	Contractor        string `json:"contractor"`
	ContractorRegNum  string `json:"contractor_reg_num"`
	ContractorAddress string `json:"contractor_address"`
	AwardDate         string `json:"award_date"`
	ContractValue     string `json:"contract_value"`
}

// NewNoticeRecord returns a record with all collections initialized so that
// serialization emits empty values rather than nulls.
func NewNoticeRecord() *NoticeRecord {
	return &NoticeRecord{
		AuthorityContact: map[string]string{},
		CPVCodes:         []string{},
		CPVDescriptions:  map[string]string{},
		AwardCriteria:    []string{},
		Lots:             []Lot{},
		MatchedKeywords:  []string{},
		MatchedCPV:       []string{},
	}
}
