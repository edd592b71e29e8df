package profile

import (
	"strconv"
	"testing"

	"DetectiveProfileService/pkg/apperrors"
)

func TestResolvePortrait_Brackets(t *testing.T) {
	tests := []struct {
		gender string
		age    string
		want   Portrait
	}{
		{"Male", "18", ManYoung},
		{"Male", "30", ManYoung},
		{"Male", "31", ManMid},
		{"Male", "45", ManMid},
		{"Male", "46", ManSenior},
		{"Male", "70", ManSenior},
		{"Female", "30", WomanYoung},
		{"Female", "31", WomanMid},
		{"Female", "45", WomanMid},
		{"Female", "46", WomanSenior},
		// Все, кроме Female, получают мужской набор
		{"Other", "25", ManYoung},
		{"", "50", ManSenior},
		{"Female", " 40 ", WomanMid},
		{"Male", "120", ManSenior},
	}

	for _, tt := range tests {
		t.Run(tt.gender+"_"+tt.age, func(t *testing.T) {
			got, err := ResolvePortrait(tt.gender, tt.age)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolvePortrait_AlwaysDefined(t *testing.T) {
	for _, gender := range []string{"Male", "Female"} {
		for age := 0; age <= 130; age++ {
			p, err := ResolvePortrait(gender, strconv.Itoa(age))
			if err != nil {
				t.Fatalf("%s/%d: unexpected error: %v", gender, age, err)
			}
			if !p.Valid() {
				t.Fatalf("%s/%d: undefined portrait %q", gender, age, p)
			}
		}
	}
}

func TestResolvePortrait_NonNumericAge(t *testing.T) {
	for _, age := range []string{"", "forty", "40.5", "4O"} {
		_, err := ResolvePortrait("Male", age)
		if !apperrors.IsMalformed(err) {
			t.Errorf("Age %q: expected MalformedRecordError, got %v", age, err)
		}
	}
}

func TestPortrait_DisplayName(t *testing.T) {
	if name := WomanSenior.DisplayName(); name != "Eleanor Voss" {
		t.Errorf("Expected Eleanor Voss, got %q", name)
	}
	if Portrait("cat-young").Valid() {
		t.Error("Unknown portrait must not be valid")
	}
}
