package grpc

import (
	"math"
	"strconv"
	"time"

	"DetectiveProfileService/internal/gate"
	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/service"
	"DetectiveProfileService/pkg/apperrors"

	"google.golang.org/protobuf/types/known/structpb"
)

// request читает поля запроса и собирает ошибки формата в ValidationError
type request struct {
	fields map[string]*structpb.Value
	errs   *apperrors.ValidationError
}

func newRequest(in *structpb.Struct) *request {
	return &request{
		fields: in.GetFields(),
		errs:   apperrors.NewValidationError(),
	}
}

func (r *request) str(key string) string {
	v, ok := r.fields[key]
	if !ok {
		return ""
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return ""
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		r.errs.Add(key, "must be a string")
		return ""
	}
	return s.StringValue
}

func (r *request) boolean(key string) bool {
	v, ok := r.fields[key]
	if !ok {
		r.errs.Add(key, "is required")
		return false
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		r.errs.Add(key, "must be a boolean")
		return false
	}
	return b.BoolValue
}

// age принимает строку или целое число
func (r *request) age(key string) string {
	v, ok := r.fields[key]
	if !ok {
		return ""
	}
	if n, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
		if n.NumberValue != math.Trunc(n.NumberValue) {
			r.errs.Add(key, "Age must be a number")
			return ""
		}
		return strconv.Itoa(int(n.NumberValue))
	}
	return r.str(key)
}

func (r *request) skills(key string) models.SkillAllocation {
	v, ok := r.fields[key]
	if !ok {
		return nil
	}
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		r.errs.Add(key, "must be an object")
		return nil
	}

	out := make(models.SkillAllocation, len(s.StructValue.GetFields()))
	for skill, points := range s.StructValue.GetFields() {
		n, ok := points.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			r.errs.Add(key, "skill points must be integers")
			return nil
		}
		out[skill] = int(n.NumberValue)
	}
	return out
}

func (r *request) err() error {
	return r.errs.OrNil()
}

func authPayload(result identity.AuthResult, state gate.State) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"uid":          result.Identity.UID,
		"displayName":  result.Identity.DisplayNameOrDefault(),
		"email":        result.Identity.Email,
		"authProvider": string(result.Identity.Provider),
		"token":        result.Token,
		"expiresAt":    result.ExpiresAt.UTC().Format(time.RFC3339),
		"state":        state.String(),
		"route":        string(state.Route()),
	})
}

func routeResponse(state gate.State) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"state": state.String(),
		"route": string(state.Route()),
	})
}

func profileResponse(view *service.ProfileView) (*structpb.Struct, error) {
	p := view.Profile

	skills := make(map[string]interface{}, len(models.SkillKeys))
	for _, key := range models.SkillKeys {
		skills[key] = p.Skills[key]
	}

	fields := map[string]interface{}{
		"firstName":        p.FirstName,
		"lastName":         p.LastName,
		"fullName":         p.FullName(),
		"gender":           p.Gender,
		"age":              p.Age,
		"sexualPreference": p.SexualPreference,
		"casesWon":         p.CasesWon,
		"wrongGuesses":     p.WrongGuesses,
		"skills":           skills,
		"skillPointsLeft":  view.SkillPointsLeft,
		"schemaVersion":    int(view.SchemaVersion),
		"portrait":         string(view.Portrait),
		"portraitName":     view.Portrait.DisplayName(),
		"rank":             string(view.Rank),
		"score":            view.Score,
	}
	if view.NextRank != nil {
		fields["nextRank"] = string(view.NextRank.Rank)
		fields["scoreToNextRank"] = view.ScoreToNextRank
	}
	return structpb.NewStruct(fields)
}
