package keywording

import "testing"

func TestCategory(t *testing.T) {
	tests := []struct {
		category   Category
		name       string
		actionable bool
	}{
		{CategoryStableReq, "STABLEREQ", true},
		{CategoryKeywordReq, "KEYWORDREQ", true},
		{CategoryOther, "OTHER", false},
		{Category(42), "OTHER", false},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.name {
			t.Errorf("Category(%d).String() = %q, want %q", tt.category, got, tt.name)
		}
		if got := tt.category.Actionable(); got != tt.actionable {
			t.Errorf("Category(%d).Actionable() = %v, want %v", tt.category, got, tt.actionable)
		}
	}
}

func TestFlagAndOutcomeNames(t *testing.T) {
	if SanityUnknown.String() != "unknown" || SanityPassed.String() != "passed" || SanityFailed.String() != "failed" {
		t.Error("unexpected SanityFlag names")
	}
	if OutcomeUnknown.String() != "unknown" || OutcomePassed.String() != "passed" || OutcomeFailed.String() != "failed" {
		t.Error("unexpected Outcome names")
	}
}
