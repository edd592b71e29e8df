package models

import (
	"time"
)

// Account учетная запись провайдера идентификации.
// Для входа по паролю ProviderSubject совпадает с email, для соцсетей это sub из ID токена.
type Account struct {
	UID             string       `gorm:"type:uuid;primaryKey"`
	Email           string       `gorm:"index:idx_accounts_email,unique,where:email <> ''"`
	PasswordHash    string
	DisplayName     string
	AuthProvider    AuthProvider `gorm:"type:varchar(16);index:idx_accounts_provider_subject,unique"`
	ProviderSubject string       `gorm:"index:idx_accounts_provider_subject,unique"`
	SessionVersion  int
	CreatedAt       time.Time    `gorm:"autoCreateTime"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime"`
}

// ToIdentity переводит учетную запись в идентичность сессии
func (a Account) ToIdentity() Identity {
	return Identity{
		UID:         a.UID,
		DisplayName: a.DisplayName,
		Email:       a.Email,
		Provider:    a.AuthProvider,
	}
}

// UserProfile строка удаленного зеркала профиля
type UserProfile struct {
	UID          string       `gorm:"primaryKey"`
	DisplayName  string
	Email        string
	AuthProvider AuthProvider `gorm:"type:varchar(16)"`
	CreatedAt    time.Time
	LastActiveAt time.Time
}
