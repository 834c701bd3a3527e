package student

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FormRecord holds the wizard's field values keyed by UI field name.
// Values are strings, numbers, booleans, nested objects or []FormRecord for repeated entries.
type FormRecord map[string]interface{}

// String returns the trimmed textual form of a field, "" when absent or nil.
func (r FormRecord) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// Clone returns a copy deep enough that edits to the copy never leak back:
// nested records and slices of records are copied too.
func (r FormRecord) Clone() FormRecord {
	if r == nil {
		return FormRecord{}
	}
	c := make(FormRecord, len(r))
	for k, v := range r {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case FormRecord:
		return val.Clone()
	case map[string]interface{}:
		return FormRecord(val).Clone()
	case []FormRecord:
		out := make([]FormRecord, len(val))
		for i, sub := range val {
			out[i] = sub.Clone()
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, sub := range val {
			out[i] = cloneValue(sub)
		}
		return out
	default:
		return v
	}
}

// ErrorMap maps a field name to its error message. A missing key means the field is valid.
type ErrorMap map[string]string

// Fields returns the fields in error, sorted.
func (m ErrorMap) Fields() []string {
	flds := make([]string, 0, len(m))
	for f := range m {
		flds = append(flds, f)
	}
	sort.Strings(flds)
	return flds
}

// Merge copies every entry of other into m.
func (m ErrorMap) Merge(other ErrorMap) {
	for k, v := range other {
		m[k] = v
	}
}

// DocumentSpec identifies a document slot by key and display label.
type DocumentSpec struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

// Identity is the document name sent to the backend: the key, or the label when there is no key.
func (d DocumentSpec) Identity() string {
	if d.Key != "" {
		return d.Key
	}
	return d.Label
}

// RequiredDocuments lists the documents a profile needs to be complete, in display order.
var RequiredDocuments = []DocumentSpec{
	{Key: "passport", Label: "Passport"},
	{Key: "photo", Label: "Passport Size Photo"},
	{Key: "tenth_marksheet", Label: "10th Marksheet"},
	{Key: "twelfth_marksheet", Label: "12th Marksheet"},
	{Key: "degree_certificate", Label: "Degree Certificate"},
	{Key: "transcripts", Label: "Transcripts"},
	{Key: "english_test", Label: "English Test Score Card"},
	{Key: "resume", Label: "Resume / CV"},
	{Key: "sop", Label: "Statement of Purpose"},
	{Key: "lor", Label: "Letter of Recommendation"},
}

// LookupDocument finds a catalog entry by key or label.
func LookupDocument(identity string) (DocumentSpec, bool) {
	for _, d := range RequiredDocuments {
		if d.Key == identity || d.Label == identity {
			return d, true
		}
	}
	return DocumentSpec{}, false
}

// StagedDocument is a file picked before the student exists on the backend.
type StagedDocument struct {
	Key      string
	Label    string
	Filename string
	Blob     []byte
	MimeType string
	Preview  PreviewHandle
}

func (d StagedDocument) Spec() DocumentSpec {
	return DocumentSpec{Key: d.Key, Label: d.Label}
}

// PersistedDocument mirrors a document stored by the backend. Read-only; refresh by re-fetching.
type PersistedDocument struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Verified *bool  `json:"verified,omitempty"`
}

// Institution is one "institution attended" entry of the education step.
type Institution struct {
	Name         string `json:"name"`
	Country      string `json:"country"`
	Level        string `json:"level"`
	Language     string `json:"language,omitempty"`
	AttendedFrom string `json:"attendedFrom,omitempty"`
	AttendedTo   string `json:"attendedTo,omitempty"`
	Degree       string `json:"degree,omitempty"`
}

// Student is the backend entity as returned by a fetch.
type Student struct {
	ID                Text                `json:"_id"`
	FirstName         string              `json:"firstName"`
	LastName          string              `json:"lastName"`
	Email             string              `json:"email"`
	Phone             string              `json:"phone"`
	CountryCode       string              `json:"countryCode"`
	FatherName        string              `json:"fatherName"`
	MotherName        string              `json:"motherName"`
	DateOfBirth       string              `json:"dateOfBirth"`
	Nationality       string              `json:"nationality"`
	PassportNumber    string              `json:"passportNumber"`
	PassportExpiry    string              `json:"passportExpiry"`
	MaritalStatus     string              `json:"maritalStatus"`
	Gender            string              `json:"gender"`
	Address           string              `json:"address"`
	City              string              `json:"city"`
	State             string              `json:"state"`
	Country           string              `json:"country"`
	PostalCode        string              `json:"postalCode"`
	EducationCountry  string              `json:"educationCountry"`
	HighestLevel      string              `json:"highestLevel"`
	GradingScheme     string              `json:"gradingScheme"`
	GradeAverage      Text                `json:"gradeAverage"`
	Institutions      []Institution       `json:"institutions,omitempty"`
	ExamType          string              `json:"examType"`
	ExamDate          string              `json:"examDate"`
	ListeningScore    Text                `json:"listeningScore"`
	ReadingScore      Text                `json:"readingScore"`
	WritingScore      Text                `json:"writingScore"`
	SpeakingScore     Text                `json:"speakingScore"`
	OverallScore      Text                `json:"overallScore"`
	VisaRefusal       Text                `json:"visaRefusal"`
	StudyPermit       Text                `json:"studyPermit"`
	BackgroundDetails string              `json:"backgroundDetails"`
	Documents         []PersistedDocument `json:"documents,omitempty"`
}

// Text is a string field the backend sometimes sends as a number, a boolean or null.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}
