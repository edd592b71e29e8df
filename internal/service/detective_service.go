package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"DetectiveProfileService/internal/gate"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/profile"
	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/internal/validation"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// DetectiveServiceInterface определяет сценарии работы с профилем детектива
type DetectiveServiceInterface interface {
	CreateCharacter(ctx context.Context, uid string, input validation.Character) (*ProfileView, error)
	GetProfile(ctx context.Context, uid string) (*ProfileView, error)
	ResetProfile(ctx context.Context, uid string) error
	RecordCaseOutcome(ctx context.Context, uid string, solved bool) (*ProfileView, error)
	AllocateSkills(ctx context.Context, uid string, skills models.SkillAllocation) (*ProfileView, error)
	ResolveRoute(ctx context.Context, identity *models.Identity) (gate.State, error)
}

// ProfileStoreInterface описывает хранилище профилей
type ProfileStoreInterface interface {
	Exists(ctx context.Context, uid string) (bool, error)
	LoadProfile(ctx context.Context, uid string) (models.CharacterProfile, profile.SchemaVersion, error)
	Save(ctx context.Context, uid string, p models.CharacterProfile) error
	LoadPortrait(ctx context.Context, uid string) (profile.Portrait, error)
	SavePortrait(ctx context.Context, uid string, p profile.Portrait) error
	Reset(ctx context.Context, uid string) error
}

// ProfileView профиль с производными значениями для отображения
type ProfileView struct {
	Profile         models.CharacterProfile
	SchemaVersion   profile.SchemaVersion
	Portrait        profile.Portrait
	Rank            profile.Rank
	Score           int
	NextRank        *profile.Tier // nil для высшего звания
	ScoreToNextRank int
	SkillPointsLeft int
}

// DetectiveService представляет сервис профилей детектива
type DetectiveService struct {
	store  ProfileStoreInterface
	logger *zap.Logger
}

// NewDetectiveService создает новый экземпляр DetectiveService
func NewDetectiveService(store ProfileStoreInterface, logger *zap.Logger) *DetectiveService {
	return &DetectiveService{
		store:  store,
		logger: logger,
	}
}

// CreateCharacter создает профиль детектива. Второй профиль без сброса создать нельзя.
func (s *DetectiveService) CreateCharacter(ctx context.Context, uid string, input validation.Character) (*ProfileView, error) {
	if err := validation.ValidateCharacter(input); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, uid)
	if err != nil {
		s.logger.Error("Failed to check profile", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrProfileExists
	}

	age, _ := strconv.Atoi(strings.TrimSpace(input.Age))
	p := models.CharacterProfile{
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		Gender:           input.Gender,
		Age:              strconv.Itoa(age),
		SexualPreference: input.SexualPreference,
		Skills:           input.Skills.Clone(),
	}

	if err := s.store.Save(ctx, uid, p); err != nil {
		s.logger.Error("Failed to save profile", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}

	view, err := s.view(p, profile.CurrentSchemaVersion)
	if err != nil {
		return nil, err
	}
	s.cachePortrait(ctx, uid, view.Portrait)

	s.logger.Info("Character created",
		zap.String("uid", uid),
		zap.String("portrait", string(view.Portrait)))
	return view, nil
}

// GetProfile читает профиль и вычисляет портрет и звание.
// Кэш портрета обновляется, если он отсутствует или расходится с вычисленным.
func (s *DetectiveService) GetProfile(ctx context.Context, uid string) (*ProfileView, error) {
	p, version, err := s.store.LoadProfile(ctx, uid)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Error("Failed to load profile", zap.Error(err), zap.String("uid", uid))
		}
		return nil, err
	}

	view, err := s.view(p, version)
	if err != nil {
		s.logger.Error("Profile cannot be resolved", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}

	cached, err := s.store.LoadPortrait(ctx, uid)
	switch {
	case err == nil && cached == view.Portrait:
	case err == nil || apperrors.IsNotFound(err):
		if cached != "" {
			s.logger.Debug("Cached portrait is stale",
				zap.String("uid", uid),
				zap.String("cached", string(cached)),
				zap.String("computed", string(view.Portrait)))
		}
		s.cachePortrait(ctx, uid, view.Portrait)
	default:
		s.logger.Warn("Failed to read cached portrait", zap.Error(err), zap.String("uid", uid))
	}

	return view, nil
}

// ResetProfile удаляет профиль и кэш портрета
func (s *DetectiveService) ResetProfile(ctx context.Context, uid string) error {
	if err := s.store.Reset(ctx, uid); err != nil {
		s.logger.Error("Failed to reset profile", zap.Error(err), zap.String("uid", uid))
		return err
	}
	return nil
}

// RecordCaseOutcome учитывает раскрытое дело или ошибочную догадку
func (s *DetectiveService) RecordCaseOutcome(ctx context.Context, uid string, solved bool) (*ProfileView, error) {
	return s.update(ctx, uid, func(p *models.CharacterProfile) {
		if solved {
			p.CasesWon = saturatingInc(p.CasesWon)
		} else {
			p.WrongGuesses = saturatingInc(p.WrongGuesses)
		}
	})
}

// saturatingInc увеличивает счетчик, останавливаясь на math.MaxInt:
// отрицательное значение сделало бы запись нечитаемой
func saturatingInc(n int) int {
	if n == math.MaxInt {
		return n
	}
	return n + 1
}

// AllocateSkills заменяет распределение очков навыков
func (s *DetectiveService) AllocateSkills(ctx context.Context, uid string, skills models.SkillAllocation) (*ProfileView, error) {
	if err := validation.ValidateSkills(skills); err != nil {
		return nil, err
	}
	return s.update(ctx, uid, func(p *models.CharacterProfile) {
		p.Skills = skills.Clone()
	})
}

// ResolveRoute вычисляет состояние навигационного шлюза для одного запроса
func (s *DetectiveService) ResolveRoute(ctx context.Context, identity *models.Identity) (gate.State, error) {
	st := session.State{Identity: identity}
	if identity == nil {
		return gate.Decide(st, false), nil
	}

	exists, err := s.store.Exists(ctx, identity.UID)
	if err != nil {
		return gate.Unresolved, err
	}
	return gate.Decide(st, exists), nil
}

// update читает профиль, применяет изменение и сохраняет его в текущем формате
func (s *DetectiveService) update(ctx context.Context, uid string, mutate func(p *models.CharacterProfile)) (*ProfileView, error) {
	p, _, err := s.store.LoadProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	mutate(&p)

	if err := s.store.Save(ctx, uid, p); err != nil {
		s.logger.Error("Failed to save profile", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}
	return s.view(p, profile.CurrentSchemaVersion)
}

func (s *DetectiveService) view(p models.CharacterProfile, version profile.SchemaVersion) (*ProfileView, error) {
	portrait, err := profile.ResolvePortrait(p.Gender, p.Age)
	if err != nil {
		return nil, err
	}

	view := &ProfileView{
		Profile:         p,
		SchemaVersion:   version,
		Portrait:        portrait,
		Rank:            profile.ResolveRank(p.CasesWon, p.WrongGuesses),
		Score:           profile.Score(p.CasesWon, p.WrongGuesses),
		SkillPointsLeft: p.Skills.Remaining(),
	}
	if next, remaining, ok := profile.NextRank(p.CasesWon, p.WrongGuesses); ok {
		view.NextRank = &next
		view.ScoreToNextRank = remaining
	}
	return view, nil
}

func (s *DetectiveService) cachePortrait(ctx context.Context, uid string, p profile.Portrait) {
	if err := s.store.SavePortrait(ctx, uid, p); err != nil {
		s.logger.Warn("Failed to cache portrait", zap.Error(err), zap.String("uid", uid))
	}
}

var _ DetectiveServiceInterface = (*DetectiveService)(nil)
