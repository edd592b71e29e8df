package profile

import (
	"strconv"
	"strings"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"
)

// Portrait идентификатор портрета персонажа
type Portrait string

const (
	ManYoung    Portrait = "man-young"
	ManMid      Portrait = "man-mid"
	ManSenior   Portrait = "man-senior"
	WomanYoung  Portrait = "woman-young"
	WomanMid    Portrait = "woman-mid"
	WomanSenior Portrait = "woman-senior"
)

// Верхние границы возрастных групп включительно
const (
	youngMaxAge = 30
	midMaxAge   = 45
)

var portraitNames = map[Portrait]string{
	ManYoung:    "Jake Carter",
	ManMid:      "Marcus Reid",
	ManSenior:   "Victor Kane",
	WomanYoung:  "Zoe Hart",
	WomanMid:    "Diana Cross",
	WomanSenior: "Eleanor Voss",
}

// Valid проверяет, что портрет входит в набор
func (p Portrait) Valid() bool {
	_, ok := portraitNames[p]
	return ok
}

// DisplayName имя персонажа на портрете
func (p Portrait) DisplayName() string {
	return portraitNames[p]
}

// ParseAge разбирает возраст, сохраненный строкой
func ParseAge(age string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(age))
	if err != nil {
		return 0, apperrors.NewMalformedRecordError("age", "age must be an integer", err)
	}
	return n, nil
}

// ResolvePortrait выбирает портрет по полу и возрасту.
// Граничный возраст относится к младшей группе.
func ResolvePortrait(gender, age string) (Portrait, error) {
	years, err := ParseAge(age)
	if err != nil {
		return "", err
	}

	female := gender == models.GenderFemale
	switch {
	case years <= youngMaxAge:
		if female {
			return WomanYoung, nil
		}
		return ManYoung, nil
	case years <= midMaxAge:
		if female {
			return WomanMid, nil
		}
		return ManMid, nil
	default:
		if female {
			return WomanSenior, nil
		}
		return ManSenior, nil
	}
}
