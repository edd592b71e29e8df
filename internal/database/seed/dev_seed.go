package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/service"
	"DetectiveProfileService/internal/validation"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// Данные демонстрационного детектива
const (
	DemoEmail       = "detective@example.com"
	DemoPassword    = "elementary"
	DemoDisplayName = "Sherlock Holmes"
)

// DemoCharacter персонаж, которого получает демонстрационная учетная запись
var DemoCharacter = validation.Character{
	FirstName:        "Sherlock",
	LastName:         "Holmes",
	Gender:           "Male",
	Age:              "34",
	SexualPreference: "None",
	Skills:           models.SkillAllocation{models.SkillIntelligence: 10, models.SkillCharisma: 4, models.SkillSpeed: 6},
}

// DevEnvironmentSeeder обрабатывает заполнение тестовыми данными среды разработки
type DevEnvironmentSeeder struct {
	provider identity.Provider
	service  service.DetectiveServiceInterface
	logger   *zap.Logger
	env      func(string) string
}

// NewDevEnvironmentSeeder создает новый объект для заполнения тестовыми данными
func NewDevEnvironmentSeeder(provider identity.Provider, svc service.DetectiveServiceInterface, logger *zap.Logger) *DevEnvironmentSeeder {
	return &DevEnvironmentSeeder{
		provider: provider,
		service:  svc,
		logger:   logger,
		env:      os.Getenv,
	}
}

// SeedDemoDetective создает демонстрационную учетную запись с персонажем, если мы находимся в режиме разработки
func (s *DevEnvironmentSeeder) SeedDemoDetective(ctx context.Context) error {
	if s.env("APP_ENV") != "development" {
		s.logger.Debug("Не в режиме разработки, пропускаем создание демонстрационного детектива")
		return nil
	}

	s.logger.Info("Заполнение демонстрационным детективом для среды разработки")

	result, err := s.provider.SignInWithPassword(ctx, DemoEmail, DemoPassword)
	if identity.Code(err) == identity.CodeInvalidCredential {
		result, err = s.provider.RegisterWithPassword(ctx, DemoEmail, DemoPassword, DemoDisplayName)
	}
	if err != nil {
		s.logger.Error("Не удалось получить демонстрационную учетную запись", zap.Error(err))
		return fmt.Errorf("demo account: %w", err)
	}

	uid := result.Identity.UID
	if _, err := s.service.CreateCharacter(ctx, uid, DemoCharacter); err != nil {
		if errors.Is(err, apperrors.ErrProfileExists) {
			s.logger.Info("Демонстрационный детектив уже существует", zap.String("uid", uid))
			return nil
		}
		s.logger.Error("Не удалось создать персонажа демонстрационного детектива", zap.Error(err))
		return fmt.Errorf("demo character: %w", err)
	}

	s.logger.Info("Успешно создан демонстрационный детектив", zap.String("uid", uid))
	return nil
}

// SeedAllDevData заполняет все данные для разработки
func (s *DevEnvironmentSeeder) SeedAllDevData(ctx context.Context) error {
	return s.SeedDemoDetective(ctx)
}
