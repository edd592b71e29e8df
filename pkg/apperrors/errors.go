package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Базовые ошибки приложения
var (
	// ErrNotFound возвращается, когда ключ или запись отсутствуют
	ErrNotFound = errors.New("запись не найдена")

	// ErrProfileExists возвращается при попытке создать второй профиль для одного пользователя
	ErrProfileExists = errors.New("профиль детектива уже существует")

	// ErrAccountExists возвращается при регистрации занятого email
	ErrAccountExists = errors.New("учетная запись с таким email уже существует")

	// ErrCircuitOpen возвращается, когда circuit breaker не пропускает операцию
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrUnauthenticated возвращается, когда у запроса нет действующей сессии
	ErrUnauthenticated = errors.New("пользователь не аутентифицирован")

	// IgnoredErrors содержит ошибки, которые не считаются сбоем для circuit breaker
	IgnoredErrors = []error{
		ErrNotFound,
		redis.Nil,
		gorm.ErrRecordNotFound,
	}
)

// IsNotFound проверяет, является ли ошибка ошибкой "запись не найдена"
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, redis.Nil) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

// ValidationError описывает ошибки пользовательского ввода по полям формы
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError создает пустую ошибку валидации
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add запоминает первую ошибку для поля
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// HasErrors сообщает, есть ли хотя бы одна ошибка
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil возвращает nil, если ошибок нет
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ProviderError описывает отказ внешнего провайдера идентификации
type ProviderError struct {
	Code  string
	Cause error
}

// NewProviderError создает ошибку провайдера с кодом и исходной причиной
func NewProviderError(code string, cause error) *ProviderError {
	return &ProviderError{Code: code, Cause: cause}
}

func (e *ProviderError) Error() string {
	if e.Cause == nil {
		return "identity provider: " + e.Code
	}
	return fmt.Sprintf("identity provider: %s: %v", e.Code, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// StorageError описывает сбой хранилища профилей, отличный от отсутствия ключа
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

// NewStorageError оборачивает ошибку ввода-вывода хранилища
func NewStorageError(op, key string, cause error) *StorageError {
	return &StorageError{Op: op, Key: key, Cause: cause}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("profile storage %s %q: %v", e.Op, e.Key, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// MalformedRecordError возвращается, когда сохраненную запись нельзя нормализовать
type MalformedRecordError struct {
	Field  string
	Reason string
	Cause  error
}

// NewMalformedRecordError создает ошибку некорректной записи
func NewMalformedRecordError(field, reason string, cause error) *MalformedRecordError {
	return &MalformedRecordError{Field: field, Reason: reason, Cause: cause}
}

func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return "malformed profile record: " + e.Reason
	}
	return fmt.Sprintf("malformed profile record: field %q: %s", e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}

// IsValidation проверяет, является ли ошибка ошибкой валидации
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsStorage проверяет, является ли ошибка сбоем хранилища
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

// IsMalformed проверяет, является ли ошибка ошибкой некорректной записи
func IsMalformed(err error) bool {
	var target *MalformedRecordError
	return errors.As(err, &target)
}
