package profile

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"
)

// SchemaVersion версия формата сохраненной записи профиля
type SchemaVersion int

const (
	// SchemaV1 одно поле name, возраст до 120
	SchemaV1 SchemaVersion = 1
	// SchemaV2 одно поле name и распределение навыков
	SchemaV2 SchemaVersion = 2
	// SchemaV3 раздельные имя и фамилия, текущий формат
	SchemaV3 SchemaVersion = 3

	CurrentSchemaVersion = SchemaV3
)

// Record запись профиля одной из версий схемы
type Record interface {
	Version() SchemaVersion
	sealed()
}

// RecordV1 первая версия: имя одной строкой
type RecordV1 struct {
	Name             string
	Gender           string
	Age              string
	SexualPreference string
	CasesWon         int
	WrongGuesses     int
}

// RecordV2 вторая версия: добавлены навыки
type RecordV2 struct {
	Name             string
	Gender           string
	Age              string
	SexualPreference string
	CasesWon         int
	WrongGuesses     int
	Skills           models.SkillAllocation
}

// RecordV3 текущая версия
type RecordV3 struct {
	Profile models.CharacterProfile
}

func (RecordV1) Version() SchemaVersion { return SchemaV1 }
func (RecordV2) Version() SchemaVersion { return SchemaV2 }
func (RecordV3) Version() SchemaVersion { return SchemaV3 }

func (RecordV1) sealed() {}
func (RecordV2) sealed() {}
func (RecordV3) sealed() {}

// Поля записи в хранилище
const (
	fieldSchemaVersion    = "schemaVersion"
	fieldName             = "name"
	fieldFirstName        = "firstName"
	fieldLastName         = "lastName"
	fieldGender           = "gender"
	fieldAge              = "age"
	fieldSexualPreference = "sexualPreference"
	fieldCasesWon         = "casesWon"
	fieldWrongGuesses     = "wrongGuesses"
	fieldSkills           = "skills"
)

// Decode разбирает сохраненную запись и определяет ее версию.
// Явный schemaVersion важнее признаков по полям.
func Decode(data []byte) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, apperrors.NewMalformedRecordError("", "record is not a JSON object", err)
	}

	version, err := detectVersion(raw)
	if err != nil {
		return nil, err
	}

	f := fields(raw)
	switch version {
	case SchemaV1:
		var r RecordV1
		f.str(fieldName, &r.Name)
		f.str(fieldGender, &r.Gender)
		f.age(&r.Age)
		f.str(fieldSexualPreference, &r.SexualPreference)
		f.counter(fieldCasesWon, &r.CasesWon)
		f.counter(fieldWrongGuesses, &r.WrongGuesses)
		return r, f.err
	case SchemaV2:
		var r RecordV2
		f.str(fieldName, &r.Name)
		f.str(fieldGender, &r.Gender)
		f.age(&r.Age)
		f.str(fieldSexualPreference, &r.SexualPreference)
		f.counter(fieldCasesWon, &r.CasesWon)
		f.counter(fieldWrongGuesses, &r.WrongGuesses)
		f.skills(&r.Skills)
		return r, f.err
	default:
		var r RecordV3
		p := &r.Profile
		f.str(fieldFirstName, &p.FirstName)
		f.str(fieldLastName, &p.LastName)
		// Запись V3 могла быть дописана поверх старой с полем name
		if p.FirstName == "" && p.LastName == "" {
			var name string
			f.str(fieldName, &name)
			p.FirstName, p.LastName = splitName(name)
		}
		f.str(fieldGender, &p.Gender)
		f.age(&p.Age)
		f.str(fieldSexualPreference, &p.SexualPreference)
		f.counter(fieldCasesWon, &p.CasesWon)
		f.counter(fieldWrongGuesses, &p.WrongGuesses)
		f.skills(&p.Skills)
		return r, f.err
	}
}

func detectVersion(raw map[string]json.RawMessage) (SchemaVersion, error) {
	if v, ok := raw[fieldSchemaVersion]; ok && !isNull(v) {
		n, ok := decodeInteger(v)
		if !ok {
			return 0, apperrors.NewMalformedRecordError(fieldSchemaVersion, "schema version must be an integer", nil)
		}
		switch version := SchemaVersion(n); version {
		case SchemaV1, SchemaV2, SchemaV3:
			return version, nil
		default:
			return 0, apperrors.NewMalformedRecordError(fieldSchemaVersion, "unsupported schema version "+strconv.Itoa(n), nil)
		}
	}

	_, hasFirst := raw[fieldFirstName]
	_, hasLast := raw[fieldLastName]
	if hasFirst || hasLast {
		return SchemaV3, nil
	}
	if _, ok := raw[fieldSkills]; ok {
		return SchemaV2, nil
	}
	return SchemaV1, nil
}

// Normalize приводит запись любой версии к текущему профилю
func Normalize(r Record) (models.CharacterProfile, error) {
	var current RecordV3
	switch rec := r.(type) {
	case RecordV1:
		current = migrateV2toV3(migrateV1toV2(rec))
	case RecordV2:
		current = migrateV2toV3(rec)
	case RecordV3:
		current = rec
	default:
		return models.CharacterProfile{}, apperrors.NewMalformedRecordError("", "unknown record type", nil)
	}

	if _, err := ParseAge(current.Profile.Age); err != nil {
		return models.CharacterProfile{}, err
	}
	return current.Profile, nil
}

// DecodeProfile разбирает и нормализует запись за один шаг
func DecodeProfile(data []byte) (models.CharacterProfile, SchemaVersion, error) {
	r, err := Decode(data)
	if err != nil {
		return models.CharacterProfile{}, 0, err
	}
	p, err := Normalize(r)
	if err != nil {
		return models.CharacterProfile{}, 0, err
	}
	return p, r.Version(), nil
}

func migrateV1toV2(r RecordV1) RecordV2 {
	return RecordV2{
		Name:             r.Name,
		Gender:           r.Gender,
		Age:              r.Age,
		SexualPreference: r.SexualPreference,
		CasesWon:         r.CasesWon,
		WrongGuesses:     r.WrongGuesses,
	}
}

func migrateV2toV3(r RecordV2) RecordV3 {
	first, last := splitName(r.Name)
	return RecordV3{Profile: models.CharacterProfile{
		FirstName:        first,
		LastName:         last,
		Gender:           r.Gender,
		Age:              r.Age,
		SexualPreference: r.SexualPreference,
		CasesWon:         r.CasesWon,
		WrongGuesses:     r.WrongGuesses,
		Skills:           r.Skills.Clone(),
	}}
}

// splitName делит имя по первому пробельному промежутку
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	i := strings.IndexFunc(name, unicode.IsSpace)
	if i < 0 {
		return name, ""
	}
	return name[:i], strings.TrimLeftFunc(name[i:], unicode.IsSpace)
}

type recordWire struct {
	SchemaVersion    SchemaVersion  `json:"schemaVersion"`
	FirstName        string         `json:"firstName"`
	LastName         string         `json:"lastName"`
	Gender           string         `json:"gender"`
	Age              string         `json:"age"`
	SexualPreference string         `json:"sexualPreference"`
	CasesWon         int            `json:"casesWon"`
	WrongGuesses     int            `json:"wrongGuesses"`
	Skills           map[string]int `json:"skills,omitempty"`
}

// Encode сериализует профиль в текущем формате с явной версией
func Encode(p models.CharacterProfile) ([]byte, error) {
	return json.Marshal(recordWire{
		SchemaVersion:    CurrentSchemaVersion,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Gender:           p.Gender,
		Age:              p.Age,
		SexualPreference: p.SexualPreference,
		CasesWon:         p.CasesWon,
		WrongGuesses:     p.WrongGuesses,
		Skills:           p.Skills,
	})
}

// fieldReader читает поля записи и запоминает первую ошибку
type fieldReader struct {
	raw map[string]json.RawMessage
	err error
}

func fields(raw map[string]json.RawMessage) *fieldReader {
	return &fieldReader{raw: raw}
}

func (f *fieldReader) fail(field, reason string, cause error) {
	if f.err == nil {
		f.err = apperrors.NewMalformedRecordError(field, reason, cause)
	}
}

func (f *fieldReader) lookup(field string) (json.RawMessage, bool) {
	v, ok := f.raw[field]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func (f *fieldReader) str(field string, dst *string) {
	v, ok := f.lookup(field)
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		f.fail(field, "must be a string", err)
	}
}

// age обязателен: строка с целым числом или целое число
func (f *fieldReader) age(dst *string) {
	v, ok := f.lookup(fieldAge)
	if !ok {
		f.fail(fieldAge, "age is missing", nil)
		return
	}
	if n, ok := decodeInteger(v); ok {
		*dst = strconv.Itoa(n)
		return
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		f.fail(fieldAge, "age must be an integer", err)
		return
	}
	n, err := ParseAge(s)
	if err != nil {
		f.fail(fieldAge, "age must be an integer", err)
		return
	}
	*dst = strconv.Itoa(n)
}

func (f *fieldReader) counter(field string, dst *int) {
	v, ok := f.lookup(field)
	if !ok {
		return
	}
	n, ok := decodeInteger(v)
	if !ok || n < 0 {
		f.fail(field, "must be a non-negative integer", nil)
		return
	}
	*dst = n
}

func (f *fieldReader) skills(dst *models.SkillAllocation) {
	v, ok := f.lookup(fieldSkills)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(v, &raw); err != nil {
		f.fail(fieldSkills, "must be an object", err)
		return
	}
	out := make(models.SkillAllocation, len(raw))
	for key, value := range raw {
		n, ok := decodeInteger(value)
		if !ok || n < 0 {
			f.fail(fieldSkills, "skill "+key+" must be a non-negative integer", nil)
			return
		}
		out[key] = n
	}
	*dst = out
}

// decodeInteger принимает только JSON-число без дробной части
func decodeInteger(v json.RawMessage) (int, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] == '"' {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, false
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return i, true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
