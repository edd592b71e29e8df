package models

// AuthProvider способ входа пользователя
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
	ProviderApple  AuthProvider = "apple"
)

// Valid проверяет, что провайдер известен
func (p AuthProvider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderGoogle, ProviderApple:
		return true
	default:
		return false
	}
}

// DefaultDisplayName используется, когда провайдер не вернул имя
const DefaultDisplayName = "Detective"

// Identity представляет аутентифицированного пользователя.
// UID непрозрачен и стабилен между сессиями.
type Identity struct {
	UID         string       `json:"uid"`
	DisplayName string       `json:"displayName,omitempty"`
	Email       string       `json:"email,omitempty"`
	Provider    AuthProvider `json:"authProvider"`
}

// DisplayNameOrDefault возвращает имя для отображения с запасным значением
func (i Identity) DisplayNameOrDefault() string {
	if i.DisplayName == "" {
		return DefaultDisplayName
	}
	return i.DisplayName
}
