package student

import (
	"testing"
	"time"
)

func fixClock(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2026, time.October, 15, 14, 30, 0, 0, time.Local) }
	t.Cleanup(func() { NowFunc = time.Now })
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: "First name is required"},
		{name: "whitespace only", value: " \t\n", want: "First name is required"},
		{name: "set", value: "Amara", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Required(tt.value, "First name"); got != tt.want {
				t.Errorf("Required() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
		want    string
	}{
		{value: "a@b.com"},
		{value: " user.name+tag@school.co.in "},
		{value: "", wantErr: true, want: "Email is required"},
		{value: "notanemail", wantErr: true, want: "Please enter a valid email address"},
		{value: "a@b", wantErr: true, want: "Please enter a valid email address"},
		{value: "a b@c.com", wantErr: true, want: "Please enter a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := Email(tt.value)
			if (got != "") != tt.wantErr {
				t.Fatalf("Email(%q) = %q, wantErr %v", tt.value, got, tt.wantErr)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestMobile(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{value: "1234567890"},
		{value: "12345", wantErr: true},
		{value: "", wantErr: true},
		{value: "12345678901", wantErr: true},
		{value: "12345abcde", wantErr: true},
		{value: "+123456789", wantErr: true},
		{value: "١٢٣٤٥٦٧٨٩٠", wantErr: true}, // non-ASCII digits
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := Mobile(tt.value); (got != "") != tt.wantErr {
				t.Errorf("Mobile(%q) = %q, wantErr %v", tt.value, got, tt.wantErr)
			}
		})
	}
}

func TestDate(t *testing.T) {
	fixClock(t)

	tests := []struct {
		name  string
		value string
		opts  DateOpts
		want  string
	}{
		{name: "empty is optional", value: "", opts: DateOpts{Past: true, Label: "Date of birth"}},
		{name: "past ok", value: "2000-01-01", opts: DateOpts{Past: true, Label: "Date of birth"}},
		{name: "past in future", value: "2999-01-01", opts: DateOpts{Past: true, Label: "Date of birth"}, want: "Date of birth must be in the past"},
		{name: "past today", value: "2026-10-15", opts: DateOpts{Past: true, Label: "Date of birth"}, want: "Date of birth must be in the past"},
		{name: "past yesterday", value: "2026-10-14", opts: DateOpts{Past: true, Label: "Date of birth"}},
		{name: "future ok", value: "2026-10-16", opts: DateOpts{Future: true, Label: "Passport expiry"}},
		{name: "future today", value: "2026-10-15", opts: DateOpts{Future: true, Label: "Passport expiry"}, want: "Passport expiry must be in the future"},
		{name: "future in past", value: "2020-01-01", opts: DateOpts{Future: true, Label: "Passport expiry"}, want: "Passport expiry must be in the future"},
		{name: "impossible date", value: "2021-02-30", opts: DateOpts{Label: "Exam date"}, want: "Please enter a valid exam date"},
		{name: "garbage", value: "yesterday", opts: DateOpts{Label: "Exam date"}, want: "Please enter a valid exam date"},
		{name: "rfc3339", value: "2000-01-31T00:00:00Z", opts: DateOpts{Past: true, Label: "Date of birth"}},
		{name: "no bounds", value: "2999-01-01", opts: DateOpts{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Date(tt.value, tt.opts); got != tt.want {
				t.Errorf("Date(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name  string
		value string
		opts  NumberOpts
		want  string
	}{
		{name: "empty is optional", value: "", opts: NumberOpts{Positive: true, Label: "Score"}},
		{name: "not a number", value: "abc", opts: NumberOpts{Label: "Score"}, want: "Score must be a number"},
		{name: "negative with positive", value: "-1", opts: NumberOpts{Positive: true, Label: "Score"}, want: "Score cannot be negative"},
		{name: "zero with positive", value: "0", opts: NumberOpts{Positive: true, Label: "Score"}},
		{name: "min inclusive", value: "0", opts: NumberOpts{Min: Float(0), Label: "Grade"}},
		{name: "below min", value: "-0.5", opts: NumberOpts{Min: Float(0), Label: "Grade"}, want: "Grade must be at least 0"},
		{name: "max inclusive", value: "9", opts: NumberOpts{Max: Float(9), Label: "Score"}},
		{name: "above max", value: "9.5", opts: NumberOpts{Max: Float(9), Label: "Score"}, want: "Score must be at most 9"},
		{name: "decimal", value: "78.25", opts: NumberOpts{Min: Float(0), Max: Float(100), Label: "Grade"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Number(tt.value, tt.opts); got != tt.want {
				t.Errorf("Number(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
