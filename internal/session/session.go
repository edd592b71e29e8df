// Package session хранит текущую идентичность пользователя и оповещает подписчиков о ее смене.
package session

import (
	"context"
	"sync"

	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"

	"go.uber.org/zap"
)

// State снимок сессии. Identity == nil означает отсутствие входа.
type State struct {
	Identity *models.Identity
	// Loading истинно, пока начальное восстановление сессии не завершено
	Loading bool
}

// Authenticated сообщает, выполнен ли вход
func (s State) Authenticated() bool {
	return !s.Loading && s.Identity != nil
}

// Mirror удаленное зеркало профиля; ошибки не влияют на сессию
type Mirror interface {
	Upsert(ctx context.Context, identity models.Identity) error
}

// Session владеет текущим состоянием входа
type Session struct {
	provider identity.Provider
	mirror   Mirror
	logger   *zap.Logger

	mu          sync.Mutex
	state       State
	token       string
	subscribers map[int]chan State
	nextID      int
}

// New создает сессию в состоянии загрузки. mirror может быть nil.
func New(provider identity.Provider, mirror Mirror, logger *zap.Logger) *Session {
	return &Session{
		provider:    provider,
		mirror:      mirror,
		logger:      logger,
		state:       State{Loading: true},
		subscribers: make(map[int]chan State),
	}
}

// State возвращает текущий снимок
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token возвращает сессионный токен текущего входа
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Restore завершает начальную загрузку. Пустой или недействительный токен означает отсутствие входа.
func (s *Session) Restore(ctx context.Context, token string) State {
	if token == "" {
		return s.publish(nil, "")
	}

	id, err := s.provider.VerifyToken(ctx, token)
	if err != nil {
		s.logger.Info("Сохраненная сессия недействительна", zap.Error(err))
		return s.publish(nil, "")
	}
	return s.publish(&id, token)
}

// SignInWithPassword выполняет вход по email и паролю
func (s *Session) SignInWithPassword(ctx context.Context, email, password string) (identity.AuthResult, error) {
	result, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return identity.AuthResult{}, err
	}
	s.signedIn(ctx, result)
	return result, nil
}

// RegisterWithPassword создает учетную запись и выполняет вход
func (s *Session) RegisterWithPassword(ctx context.Context, email, password, displayName string) (identity.AuthResult, error) {
	result, err := s.provider.RegisterWithPassword(ctx, email, password, displayName)
	if err != nil {
		return identity.AuthResult{}, err
	}
	s.signedIn(ctx, result)
	return result, nil
}

// SignInWithSocialToken выполняет вход по ID токену соцсети
func (s *Session) SignInWithSocialToken(ctx context.Context, provider models.AuthProvider, token string) (identity.AuthResult, error) {
	result, err := s.provider.SignInWithSocialToken(ctx, provider, token)
	if err != nil {
		return identity.AuthResult{}, err
	}
	s.signedIn(ctx, result)
	return result, nil
}

// SignOut завершает сессию. При ошибке провайдера состояние не меняется.
func (s *Session) SignOut(ctx context.Context) error {
	current := s.State()
	if current.Identity != nil {
		if err := s.provider.SignOut(ctx, current.Identity.UID); err != nil {
			return err
		}
	}
	s.publish(nil, "")
	return nil
}

// Subscribe возвращает канал с последним состоянием сессии и функцию отписки.
// Медленный подписчик видит только самое свежее состояние.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	ch <- s.state
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *Session) signedIn(ctx context.Context, result identity.AuthResult) {
	id := result.Identity
	s.publish(&id, result.Token)

	if s.mirror == nil {
		return
	}
	if err := s.mirror.Upsert(ctx, id); err != nil {
		s.logger.Warn("Зеркало профиля не обновлено",
			zap.String("uid", id.UID),
			zap.Error(err))
	}
}

func (s *Session) publish(id *models.Identity, token string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{Identity: id}
	s.token = token

	for _, ch := range s.subscribers {
		// Заменяем непрочитанное состояние свежим
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
	return s.state
}
