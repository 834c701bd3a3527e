package student

// RuleKind selects the FieldValidator applied to a field.
type RuleKind int

const (
	KindRequired RuleKind = iota
	KindEmail
	KindMobile
	KindDate
	KindNumber
)

// FieldRule declares how a single form field is validated.
type FieldRule struct {
	Field    string
	Label    string
	Kind     RuleKind
	Required bool // only meaningful for KindDate and KindNumber, which are optional otherwise
	Date     DateOpts
	Number   NumberOpts
}

// Check runs the rule against the field's current value.
func (rule FieldRule) Check(record FormRecord) string {
	value := record.String(rule.Field)
	switch rule.Kind {
	case KindEmail:
		return Email(value)
	case KindMobile:
		return Mobile(value)
	case KindDate:
		if rule.Required {
			if msg := Required(value, rule.Label); msg != "" {
				return msg
			}
		}
		opts := rule.Date
		opts.Label = rule.Label
		return Date(value, opts)
	case KindNumber:
		if rule.Required {
			if msg := Required(value, rule.Label); msg != "" {
				return msg
			}
		}
		opts := rule.Number
		opts.Label = rule.Label
		return Number(value, opts)
	default:
		return Required(value, rule.Label)
	}
}

// Step groups the rules gating one wizard step.
type Step struct {
	Number int
	Title  string
	Rules  []FieldRule
}

const (
	StepPersonal   = 1
	StepEducation  = 2
	StepTestScores = 3
	StepBackground = 4
	StepDocuments  = 5

	TotalSteps = StepDocuments
)

var bandScore = NumberOpts{Positive: true, Max: Float(9)}

// Steps is the static gate table, indexed by step number - 1.
var Steps = []Step{
	{
		Number: StepPersonal,
		Title:  "Personal Information",
		Rules: []FieldRule{
			{Field: "firstName", Label: "First name"},
			{Field: "lastName", Label: "Last name"},
			{Field: "email", Label: "Email", Kind: KindEmail},
			{Field: "mobile", Label: "Mobile number", Kind: KindMobile},
			{Field: "dob", Label: "Date of birth", Kind: KindDate, Required: true, Date: DateOpts{Past: true}},
			{Field: "nationality", Label: "Nationality"},
			{Field: "passportNumber", Label: "Passport number"},
			{Field: "passportExpiry", Label: "Passport expiry", Kind: KindDate, Date: DateOpts{Future: true}},
			{Field: "home_address", Label: "Address"},
			{Field: "city", Label: "City"},
			{Field: "country", Label: "Country"},
		},
	},
	{
		Number: StepEducation,
		Title:  "Education",
		Rules: []FieldRule{
			{Field: "educationCountry", Label: "Country of education"},
			{Field: "highestLevel", Label: "Highest level of education"},
			{Field: "gradingScheme", Label: "Grading scheme"},
			{Field: "gradeAverage", Label: "Grade average", Kind: KindNumber, Required: true, Number: NumberOpts{Min: Float(0), Max: Float(100)}},
		},
	},
	{
		Number: StepTestScores,
		Title:  "Test Scores",
		Rules: []FieldRule{
			{Field: "examType", Label: "Exam type"},
			{Field: "examDate", Label: "Exam date", Kind: KindDate, Date: DateOpts{Past: true}},
			{Field: "listeningScore", Label: "Listening score", Kind: KindNumber, Number: bandScore},
			{Field: "readingScore", Label: "Reading score", Kind: KindNumber, Number: bandScore},
			{Field: "writingScore", Label: "Writing score", Kind: KindNumber, Number: bandScore},
			{Field: "speakingScore", Label: "Speaking score", Kind: KindNumber, Number: bandScore},
			{Field: "overallScore", Label: "Overall score", Kind: KindNumber, Number: bandScore},
		},
	},
	{
		Number: StepBackground,
		Title:  "Background Information",
		Rules: []FieldRule{
			{Field: "visaRefusal", Label: "Visa refusal"},
			{Field: "studyPermit", Label: "Study permit"},
		},
	},
	{
		Number: StepDocuments,
		Title:  "Documents",
	},
}

// StepGate decides whether a step's fields are satisfied.
type StepGate struct {
	steps []Step
}

// NewStepGate returns a gate over `steps`, defaulting to Steps.
func NewStepGate(steps ...Step) *StepGate {
	if len(steps) == 0 {
		steps = Steps
	}
	return &StepGate{steps: steps}
}

func (g *StepGate) TotalSteps() int { return len(g.steps) }

func (g *StepGate) step(n int) (Step, bool) {
	for _, s := range g.steps {
		if s.Number == n {
			return s, true
		}
	}
	return Step{}, false
}

// Title of step n, "" if unknown.
func (g *StepGate) Title(n int) string {
	s, _ := g.step(n)
	return s.Title
}

// FieldsForStep returns the ordered field names gated by step n.
func (g *StepGate) FieldsForStep(n int) []string {
	s, _ := g.step(n)
	fields := make([]string, 0, len(s.Rules))
	for _, rule := range s.Rules {
		fields = append(fields, rule.Field)
	}
	return fields
}

// ValidateStep returns the errors of step n's fields; an empty map means the step is valid.
// record is never mutated.
func (g *StepGate) ValidateStep(n int, record FormRecord) ErrorMap {
	errs := make(ErrorMap)
	s, _ := g.step(n)
	for _, rule := range s.Rules {
		if msg := rule.Check(record); msg != "" {
			errs[rule.Field] = msg
		}
	}
	return errs
}

func (g *StepGate) IsStepValid(n int, record FormRecord) bool {
	return len(g.ValidateStep(n, record)) == 0
}

// ValidateField checks a single field wherever it is declared. Undeclared fields are always valid.
func (g *StepGate) ValidateField(field string, record FormRecord) string {
	if rule, ok := g.Rule(field); ok {
		return rule.Check(record)
	}
	return ""
}

// Rule finds the rule declared for field.
func (g *StepGate) Rule(field string) (FieldRule, bool) {
	for _, s := range g.steps {
		for _, rule := range s.Rules {
			if rule.Field == field {
				return rule, true
			}
		}
	}
	return FieldRule{}, false
}

// StepOf returns the step declaring field, 0 if none.
func (g *StepGate) StepOf(field string) int {
	for _, s := range g.steps {
		for _, rule := range s.Rules {
			if rule.Field == field {
				return s.Number
			}
		}
	}
	return 0
}
