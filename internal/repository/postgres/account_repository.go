package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"
	"DetectiveProfileService/pkg/server"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// AccountRepository хранит учетные записи провайдера идентификации
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository создает новый экземпляр AccountRepository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

// Create создает учетную запись; email должен быть свободен
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	startTime := time.Now()
	account.Email = normalizeEmail(account.Email)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if account.Email != "" {
			var existing models.Account
			err := tx.Where("email = ?", account.Email).First(&existing).Error
			if err == nil {
				return apperrors.ErrAccountExists
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		return tx.Create(account).Error
	})
	if isUniqueViolation(err) {
		err = apperrors.ErrAccountExists
	}

	server.RecordDBOperation("account_create", time.Since(startTime), ignoreExpected(err))
	return err
}

// GetByUID получает учетную запись по uid
func (r *AccountRepository) GetByUID(ctx context.Context, uid string) (*models.Account, error) {
	return r.first(ctx, "account_get_by_uid", "uid = ?", uid)
}

// GetByEmail получает учетную запись по email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.first(ctx, "account_get_by_email", "email = ?", normalizeEmail(email))
}

// GetBySubject получает учетную запись по провайдеру и идентификатору субъекта
func (r *AccountRepository) GetBySubject(ctx context.Context, provider models.AuthProvider, subject string) (*models.Account, error) {
	return r.first(ctx, "account_get_by_subject", "auth_provider = ? AND provider_subject = ?", provider, subject)
}

// BumpSessionVersion отзывает все выданные токены пользователя
func (r *AccountRepository) BumpSessionVersion(ctx context.Context, uid string) error {
	startTime := time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("uid = ?", uid).
		UpdateColumn("session_version", gorm.Expr("session_version + ?", 1))

	err := result.Error
	if err == nil && result.RowsAffected == 0 {
		err = apperrors.ErrNotFound
	}

	server.RecordDBOperation("account_bump_session", time.Since(startTime), ignoreExpected(err))
	return err
}

func (r *AccountRepository) first(ctx context.Context, operation, query string, args ...interface{}) (*models.Account, error) {
	startTime := time.Now()

	var account models.Account
	err := r.db.WithContext(ctx).Where(query, args...).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = apperrors.ErrNotFound
	}

	server.RecordDBOperation(operation, time.Since(startTime), ignoreExpected(err))
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// uniqueViolationCode код SQLSTATE нарушения уникального индекса
const uniqueViolationCode = "23505"

// isUniqueViolation распознает конфликт уникального индекса, проигравший гонку с параллельной вставкой
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// ignoreExpected не считает отсутствие записи и занятый email сбоем для метрик
func ignoreExpected(err error) error {
	if apperrors.IsNotFound(err) || errors.Is(err, apperrors.ErrAccountExists) {
		return nil
	}
	return err
}
