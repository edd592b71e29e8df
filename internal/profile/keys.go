package profile

const (
	characterKeyPrefix         = "character_"
	selectedCharacterKeyPrefix = "selected_character_"
)

// CharacterKey ключ записи профиля пользователя
func CharacterKey(uid string) string {
	return characterKeyPrefix + uid
}

// SelectedCharacterKey ключ кэшированного портрета пользователя
func SelectedCharacterKey(uid string) string {
	return selectedCharacterKeyPrefix + uid
}
