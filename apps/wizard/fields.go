package main

import (
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

type fieldPrompt struct {
	Field string
	Label string
}

// optional fields asked after the gated ones; they are sent but never block a step
var optionalFields = map[int][]fieldPrompt{
	student.StepPersonal: {
		{Field: "c_code", Label: "Country code"},
		{Field: "gender", Label: "Gender"},
		{Field: "maritalStatus", Label: "Marital status"},
		{Field: "father", Label: "Father's name"},
		{Field: "mother", Label: "Mother's name"},
		{Field: "state", Label: "State"},
		{Field: "zipcode", Label: "Postal code"},
	},
	student.StepBackground: {
		{Field: "backgroundDetails", Label: "Background details"},
	},
}

// promptFields lists what the terminal asks on a step, gated fields first.
func promptFields(gate *student.StepGate, step int) []fieldPrompt {
	fields := gate.FieldsForStep(step)
	prompts := make([]fieldPrompt, 0, len(fields)+len(optionalFields[step]))
	for _, f := range fields {
		label := f
		if rule, ok := gate.Rule(f); ok && rule.Label != "" {
			label = rule.Label
		}
		prompts = append(prompts, fieldPrompt{Field: f, Label: label})
	}
	return append(prompts, optionalFields[step]...)
}
