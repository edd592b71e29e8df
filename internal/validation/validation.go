// Package validation проверяет ввод форм регистрации, входа и создания персонажа.
// Все ошибки собираются в один apperrors.ValidationError по полям.
package validation

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"
)

// Границы возраста персонажа при создании
const (
	MinAge = 18
	MaxAge = 70
)

const minDisplayNameLength = 2

// MinPasswordLength минимальная длина пароля при регистрации
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Registration данные формы регистрации
type Registration struct {
	DisplayName     string
	Email           string
	Password        string
	ConfirmPassword string
}

// Login данные формы входа
type Login struct {
	Email    string
	Password string
}

// Character данные формы создания персонажа
type Character struct {
	FirstName        string
	LastName         string
	Gender           string
	Age              string
	SexualPreference string
	Skills           models.SkillAllocation
}

// ValidateRegistration проверяет форму регистрации
func ValidateRegistration(r Registration) error {
	errs := apperrors.NewValidationError()

	displayName := strings.TrimSpace(r.DisplayName)
	switch {
	case displayName == "":
		errs.Add("displayName", "Name is required")
	case len([]rune(displayName)) < minDisplayNameLength:
		errs.Add("displayName", "Name must be at least 2 characters")
	}

	switch {
	case strings.TrimSpace(r.Email) == "":
		errs.Add("email", "Email is required")
	case !emailPattern.MatchString(r.Email):
		errs.Add("email", "Invalid email address")
	}

	switch {
	case r.Password == "":
		errs.Add("password", "Password is required")
	case len(r.Password) < MinPasswordLength:
		errs.Add("password", "Password must be at least 8 characters")
	}

	switch {
	case r.ConfirmPassword == "":
		errs.Add("confirmPassword", "Please confirm your password")
	case r.Password != r.ConfirmPassword:
		errs.Add("confirmPassword", "Passwords do not match")
	}

	return errs.OrNil()
}

// ValidateLogin проверяет форму входа
func ValidateLogin(l Login) error {
	errs := apperrors.NewValidationError()

	switch {
	case strings.TrimSpace(l.Email) == "":
		errs.Add("email", "Email is required")
	case !emailPattern.MatchString(l.Email):
		errs.Add("email", "Invalid email")
	}

	if l.Password == "" {
		errs.Add("password", "Password is required")
	}

	return errs.OrNil()
}

// ValidateCharacter проверяет форму создания персонажа
func ValidateCharacter(c Character) error {
	errs := apperrors.NewValidationError()

	if strings.TrimSpace(c.FirstName) == "" {
		errs.Add("firstName", "First name is required")
	}
	if strings.TrimSpace(c.LastName) == "" {
		errs.Add("lastName", "Last name is required")
	}

	switch c.Gender {
	case models.GenderMale, models.GenderFemale:
	case "":
		errs.Add("gender", "Please select a gender")
	default:
		errs.Add("gender", "Gender must be Male or Female")
	}

	age, err := strconv.Atoi(strings.TrimSpace(c.Age))
	switch {
	case strings.TrimSpace(c.Age) == "":
		errs.Add("age", "Age is required")
	case err != nil:
		errs.Add("age", "Age must be a number")
	case age < MinAge || age > MaxAge:
		errs.Add("age", "Age must be between 18 and 70")
	}

	switch c.SexualPreference {
	case models.PreferenceMen, models.PreferenceWomen, models.PreferenceBoth, models.PreferenceNone:
	case "":
		errs.Add("sexualPreference", "Please select a preference")
	default:
		errs.Add("sexualPreference", "Unknown preference")
	}

	addSkillErrors(errs, c.Skills)

	return errs.OrNil()
}

// ValidateSkills проверяет распределение очков навыков
func ValidateSkills(skills models.SkillAllocation) error {
	errs := apperrors.NewValidationError()
	addSkillErrors(errs, skills)
	return errs.OrNil()
}

func addSkillErrors(errs *apperrors.ValidationError, skills models.SkillAllocation) {
	total := 0
	for _, key := range slices.Sorted(maps.Keys(skills)) {
		points := skills[key]
		if !models.IsSkill(key) {
			errs.Add("skills", "Unknown skill: "+key)
			return
		}
		if points < 0 {
			errs.Add("skills", "Skill points cannot be negative")
			return
		}
		// Сумма копится только в пределах бюджета, иначе большие значения переполняют int
		if points > models.TotalSkillPoints-total {
			errs.Add("skills", "Only 20 skill points can be allocated")
			return
		}
		total += points
	}
}
