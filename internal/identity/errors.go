package identity

import (
	"errors"

	"DetectiveProfileService/pkg/apperrors"
)

// Коды ошибок провайдера идентификации
const (
	CodeEmailAlreadyInUse     = "auth/email-already-in-use"
	CodeWeakPassword          = "auth/weak-password"
	CodeInvalidEmail          = "auth/invalid-email"
	CodeNetworkRequestFailed  = "auth/network-request-failed"
	CodeUserNotFound          = "auth/user-not-found"
	CodeWrongPassword         = "auth/wrong-password"
	CodeInvalidCredential     = "auth/invalid-credential"
	CodeTooManyRequests       = "auth/too-many-requests"
	CodeUserTokenExpired      = "auth/user-token-expired"
	CodeInvalidUserToken      = "auth/invalid-user-token"
	CodeInternalError         = "auth/internal-error"
	CodeOperationNotAllowed   = "auth/operation-not-allowed"
	CodeAccountExistsWithCred = "auth/account-exists-with-different-credential"
)

var friendlyMessages = map[string]string{
	CodeEmailAlreadyInUse:    "This email is already registered.",
	CodeWeakPassword:         "Password is too weak.",
	CodeInvalidEmail:         "Invalid email address.",
	CodeNetworkRequestFailed: "Network error. Check your connection.",
	CodeUserNotFound:         "No account found with this email.",
	CodeWrongPassword:        "Incorrect password.",
	CodeInvalidCredential:    "Invalid email or password.",
	CodeTooManyRequests:      "Too many attempts. Please try again later.",
}

// FriendlyMessage переводит ошибку провайдера в текст для пользователя.
// Для неизвестных кодов возвращается исходный текст ошибки.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var providerErr *apperrors.ProviderError
	if errors.As(err, &providerErr) {
		if msg, ok := friendlyMessages[providerErr.Code]; ok {
			return msg
		}
	}
	return err.Error()
}

// Code возвращает код ошибки провайдера или пустую строку
func Code(err error) string {
	var providerErr *apperrors.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Code
	}
	return ""
}
