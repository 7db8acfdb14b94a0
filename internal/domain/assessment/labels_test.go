package assessment

import "testing"

func TestFormat_Part1UsesOptionLabels(t *testing.T) {
	part1, _ := Format(Answers{
		"recentFalls":   "3mo",
		"highRiskMeds":  "more",
		"psychological": "unlisted",
		"extra":         "free text",
	}, nil)

	tests := map[string]Answer{
		"recentFalls":   {Value: "3mo", Label: "One or more in last 3 months"},
		"highRiskMeds":  {Value: "more", Label: "Taking more than two high-risk medications"},
		"psychological": {Value: "unlisted", Label: "unlisted"},
		"extra":         {Value: "free text", Label: "free text"},
	}
	for key, want := range tests {
		if got := part1[key]; got != want {
			t.Errorf("%s = %+v, want %+v", key, got, want)
		}
	}
}

func TestFormat_Part2UsesQuestionLabels(t *testing.T) {
	_, part2 := Format(nil, Answers{"adl": true, "footwear": false, "custom": true, "other": nil})

	if got := part2["adl"]; got.Label != "Activities of Daily Living (A.D.L's)" || got.Value != true {
		t.Errorf("unexpected adl answer %+v", got)
	}
	if got := part2["footwear"]; got.Label != "Footwear/Clothing" || got.Value != false {
		t.Errorf("unexpected footwear answer %+v", got)
	}
	if got := part2["custom"]; got.Label != "custom" {
		t.Errorf("expected key as label, got %+v", got)
	}
	if got := part2["other"]; got.Label != "Other" || got.Value != nil {
		t.Errorf("unexpected other answer %+v", got)
	}
}

func TestOptionLabel_NonString(t *testing.T) {
	if got := OptionLabel(QuestionRecentFalls, nil); got != "" {
		t.Errorf("expected empty label for nil, got %q", got)
	}
	if got := OptionLabel(QuestionRecentFalls, float64(3)); got != "3" {
		t.Errorf("expected raw value, got %q", got)
	}
}
