package models

// TotalSkillPoints бюджет очков навыков одного детектива
const TotalSkillPoints = 20

// Навыки детектива
const (
	SkillCharisma     = "charisma"
	SkillStrength     = "strength"
	SkillVitality     = "vitality"
	SkillTech         = "tech"
	SkillIntelligence = "intelligence"
	SkillSpeed        = "speed"
)

// SkillKeys перечисляет навыки в порядке отображения
var SkillKeys = []string{
	SkillCharisma,
	SkillStrength,
	SkillVitality,
	SkillTech,
	SkillIntelligence,
	SkillSpeed,
}

// IsSkill проверяет, что ключ является известным навыком
func IsSkill(key string) bool {
	for _, skill := range SkillKeys {
		if skill == key {
			return true
		}
	}
	return false
}

// SkillAllocation распределение очков по навыкам; отсутствие ключа означает ноль
type SkillAllocation map[string]int

// Total возвращает сумму распределенных очков
func (s SkillAllocation) Total() int {
	total := 0
	for _, points := range s {
		total += points
	}
	return total
}

// Remaining возвращает нераспределенные очки
func (s SkillAllocation) Remaining() int {
	return TotalSkillPoints - s.Total()
}

// Clone возвращает копию распределения
func (s SkillAllocation) Clone() SkillAllocation {
	if s == nil {
		return nil
	}
	out := make(SkillAllocation, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Допустимые значения полей при создании персонажа
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"

	PreferenceMen   = "Men"
	PreferenceWomen = "Women"
	PreferenceBoth  = "Both"
	PreferenceNone  = "None"
)

// CharacterProfile нормализованный профиль детектива.
// Age хранится строкой, как его записывает клиент.
type CharacterProfile struct {
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Gender           string          `json:"gender"`
	Age              string          `json:"age"`
	SexualPreference string          `json:"sexualPreference"`
	CasesWon         int             `json:"casesWon"`
	WrongGuesses     int             `json:"wrongGuesses"`
	Skills           SkillAllocation `json:"skills,omitempty"`
}

// FullName возвращает имя и фамилию через пробел
func (p CharacterProfile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
