package student

import (
	"strings"

	"github.com/volatiletech/null/v8"
)

const defaultMaritalStatus = "Single"

// WireRecord is the create/update payload expected by the backend.
// Empty optional dates and enums are sent as null so the backend does not try to coerce "".
type WireRecord struct {
	FirstName         string        `json:"firstName"`
	LastName          string        `json:"lastName"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone"`
	CountryCode       string        `json:"countryCode"`
	FatherName        string        `json:"fatherName"`
	MotherName        string        `json:"motherName"`
	DateOfBirth       null.String   `json:"dateOfBirth"`
	Nationality       string        `json:"nationality"`
	PassportNumber    string        `json:"passportNumber"`
	PassportExpiry    null.String   `json:"passportExpiry"`
	MaritalStatus     string        `json:"maritalStatus"`
	Gender            null.String   `json:"gender"`
	Address           string        `json:"address"`
	City              string        `json:"city"`
	State             string        `json:"state"`
	Country           string        `json:"country"`
	PostalCode        string        `json:"postalCode"`
	EducationCountry  string        `json:"educationCountry"`
	HighestLevel      string        `json:"highestLevel"`
	GradingScheme     string        `json:"gradingScheme"`
	GradeAverage      string        `json:"gradeAverage"`
	Institutions      []Institution `json:"institutions,omitempty"`
	ExamType          string        `json:"examType"`
	ExamDate          null.String   `json:"examDate"`
	ListeningScore    string        `json:"listeningScore"`
	ReadingScore      string        `json:"readingScore"`
	WritingScore      string        `json:"writingScore"`
	SpeakingScore     string        `json:"speakingScore"`
	OverallScore      string        `json:"overallScore"`
	VisaRefusal       string        `json:"visaRefusal"`
	StudyPermit       string        `json:"studyPermit"`
	BackgroundDetails string        `json:"backgroundDetails"`
}

// ToWire translates the wizard's fields to the backend field names.
func ToWire(r FormRecord) WireRecord {
	marital := r.String("maritalStatus")
	if marital == "" {
		marital = defaultMaritalStatus
	}
	return WireRecord{
		FirstName:         r.String("firstName"),
		LastName:          r.String("lastName"),
		Email:             r.String("email"),
		Phone:             r.String("mobile"),
		CountryCode:       r.String("c_code"),
		FatherName:        r.String("father"),
		MotherName:        r.String("mother"),
		DateOfBirth:       nullable(r.String("dob")),
		Nationality:       r.String("nationality"),
		PassportNumber:    r.String("passportNumber"),
		PassportExpiry:    nullable(r.String("passportExpiry")),
		MaritalStatus:     marital,
		Gender:            nullable(r.String("gender")),
		Address:           r.String("home_address"),
		City:              r.String("city"),
		State:             r.String("state"),
		Country:           r.String("country"),
		PostalCode:        r.String("zipcode"),
		EducationCountry:  r.String("educationCountry"),
		HighestLevel:      r.String("highestLevel"),
		GradingScheme:     r.String("gradingScheme"),
		GradeAverage:      r.String("gradeAverage"),
		Institutions:      institutions(r["institutions"]),
		ExamType:          r.String("examType"),
		ExamDate:          nullable(r.String("examDate")),
		ListeningScore:    r.String("listeningScore"),
		ReadingScore:      r.String("readingScore"),
		WritingScore:      r.String("writingScore"),
		SpeakingScore:     r.String("speakingScore"),
		OverallScore:      r.String("overallScore"),
		VisaRefusal:       r.String("visaRefusal"),
		StudyPermit:       r.String("studyPermit"),
		BackgroundDetails: r.String("backgroundDetails"),
	}
}

// FromStudent pre-populates a FormRecord from a fetched student (edit mode).
func FromStudent(s Student) FormRecord {
	r := FormRecord{
		"firstName":         s.FirstName,
		"lastName":          s.LastName,
		"email":             s.Email,
		"mobile":            s.Phone,
		"c_code":            s.CountryCode,
		"father":            s.FatherName,
		"mother":            s.MotherName,
		"dob":               dateOnly(s.DateOfBirth),
		"nationality":       s.Nationality,
		"passportNumber":    s.PassportNumber,
		"passportExpiry":    dateOnly(s.PassportExpiry),
		"maritalStatus":     s.MaritalStatus,
		"gender":            s.Gender,
		"home_address":      s.Address,
		"city":              s.City,
		"state":             s.State,
		"country":           s.Country,
		"zipcode":           s.PostalCode,
		"educationCountry":  s.EducationCountry,
		"highestLevel":      s.HighestLevel,
		"gradingScheme":     s.GradingScheme,
		"gradeAverage":      string(s.GradeAverage),
		"examType":          s.ExamType,
		"examDate":          dateOnly(s.ExamDate),
		"listeningScore":    string(s.ListeningScore),
		"readingScore":      string(s.ReadingScore),
		"writingScore":      string(s.WritingScore),
		"speakingScore":     string(s.SpeakingScore),
		"overallScore":      string(s.OverallScore),
		"visaRefusal":       string(s.VisaRefusal),
		"studyPermit":       string(s.StudyPermit),
		"backgroundDetails": s.BackgroundDetails,
	}
	if len(s.Institutions) > 0 {
		subs := make([]FormRecord, 0, len(s.Institutions))
		for _, in := range s.Institutions {
			subs = append(subs, FormRecord{
				"name":         in.Name,
				"country":      in.Country,
				"level":        in.Level,
				"language":     in.Language,
				"attendedFrom": in.AttendedFrom,
				"attendedTo":   in.AttendedTo,
				"degree":       in.Degree,
			})
		}
		r["institutions"] = subs
	}
	return r
}

func nullable(s string) null.String {
	return null.NewString(s, s != "")
}

// dateOnly strips the time part of backend timestamps (2000-01-31T00:00:00.000Z -> 2000-01-31).
func dateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i == len("2006-01-02") {
		return s[:i]
	}
	return s
}

func institutions(v interface{}) []Institution {
	var subs []FormRecord
	switch val := v.(type) {
	case []FormRecord:
		subs = val
	case []interface{}:
		for _, item := range val {
			switch sub := item.(type) {
			case FormRecord:
				subs = append(subs, sub)
			case map[string]interface{}:
				subs = append(subs, FormRecord(sub))
			}
		}
	}
	if len(subs) == 0 {
		return nil
	}
	out := make([]Institution, 0, len(subs))
	for _, sub := range subs {
		out = append(out, Institution{
			Name:         sub.String("name"),
			Country:      sub.String("country"),
			Level:        sub.String("level"),
			Language:     sub.String("language"),
			AttendedFrom: sub.String("attendedFrom"),
			AttendedTo:   sub.String("attendedTo"),
			Degree:       sub.String("degree"),
		})
	}
	return out
}
