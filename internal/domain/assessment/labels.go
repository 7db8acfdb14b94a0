package assessment

import "fmt"

// LabelTableVersion identifies the label set snapshotted into entries.
// Bump it whenever a label below changes; stored entries keep the text they
// were submitted with.
const LabelTableVersion = "frat-v1"

var part1Labels = map[string]map[string]string{
	QuestionRecentFalls: {
		"none":      "None in last 12 months",
		"3to12":     "One or more between 3-12 months ago",
		"3mo":       "One or more in last 3 months",
		"inpatient": "One or more in last 3 months while inpatient/resident",
	},
	QuestionHighRiskMeds: {
		"none": "Not taking any of these medications",
		"one":  "Taking one high-risk medication",
		"two":  "Taking two high-risk medications",
		"more": "Taking more than two high-risk medications",
	},
	QuestionPsychological: {
		"none":     "None",
		"mild":     "Mild",
		"moderate": "Moderate",
		"severe":   "Severe",
	},
	QuestionCognitive: {
		"intact":   "Intact",
		"mild":     "Mild",
		"moderate": "Moderate",
		"severe":   "Severe",
	},
}

var part2Labels = map[string]string{
	"vision":      "Vision",
	"mobility":    "Mobility",
	"transfers":   "Transfers",
	"behaviours":  "Behaviours",
	"adl":         "Activities of Daily Living (A.D.L's)",
	"equipment":   "Unsafe use of equipment",
	"footwear":    "Footwear/Clothing",
	"environment": "Environment",
	"nutrition":   "Nutrition",
	"continence":  "Continence",
	"other":       "Other",
}

// Answer is a stored answer with the label shown when it was given. Part 1
// values are option keys; part 2 values are yes/no booleans or null.
type Answer struct {
	Value interface{} `json:"value" bson:"value"`
	Label string      `json:"label" bson:"label"`
}

// OptionLabel returns the label of a part 1 answer, or the answer itself.
func OptionLabel(question string, value interface{}) string {
	if value == nil {
		return ""
	}
	v, ok := value.(string)
	if !ok {
		return fmt.Sprint(value)
	}
	if l, ok := part1Labels[question][v]; ok {
		return l
	}
	return v
}

// QuestionLabel returns the label of a part 2 question, or the key itself.
func QuestionLabel(key string) string {
	if l, ok := part2Labels[key]; ok {
		return l
	}
	return key
}

// Format resolves labels for both parts. Part 1 is labelled by answer,
// part 2 by question.
func Format(part1, part2 Answers) (map[string]Answer, map[string]Answer) {
	f1 := make(map[string]Answer, len(part1))
	for q, v := range part1 {
		f1[q] = Answer{Value: v, Label: OptionLabel(q, v)}
	}
	f2 := make(map[string]Answer, len(part2))
	for q, v := range part2 {
		f2[q] = Answer{Value: v, Label: QuestionLabel(q)}
	}
	return f1, f2
}
