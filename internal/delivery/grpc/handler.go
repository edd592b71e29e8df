package grpc

import (
	"context"
	"strings"

	"DetectiveProfileService/internal/gate"
	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/service"
	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/internal/validation"
	"DetectiveProfileService/pkg/apperrors"
	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	authorizationKey = "authorization"
	bearerPrefix     = "bearer "
)

// DetectiveHandler представляет обработчик gRPC запросов
type DetectiveHandler struct {
	provider identity.Provider
	mirror   session.Mirror
	service  service.DetectiveServiceInterface
	logger   *zap.Logger
}

// NewDetectiveHandler создает новый экземпляр DetectiveHandler. mirror может быть nil.
func NewDetectiveHandler(provider identity.Provider, mirror session.Mirror, service service.DetectiveServiceInterface, logger *zap.Logger) *DetectiveHandler {
	return &DetectiveHandler{
		provider: provider,
		mirror:   mirror,
		service:  service,
		logger:   logger,
	}
}

// newSession создает сессию на время одного запроса
func (h *DetectiveHandler) newSession(ctx context.Context) *session.Session {
	return session.New(h.provider, h.mirror, server.WithRequestID(ctx, h.logger))
}

// SignIn выполняет вход по email и паролю
func (h *DetectiveHandler) SignIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	form := validation.Login{
		Email:    req.str("email"),
		Password: req.str("password"),
	}
	if err := req.err(); err != nil {
		return nil, toStatus(err)
	}
	if err := validation.ValidateLogin(form); err != nil {
		return nil, toStatus(err)
	}

	result, err := h.newSession(ctx).SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.authResponse(ctx, result)
}

// Register создает учетную запись по email и паролю
func (h *DetectiveHandler) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	form := validation.Registration{
		DisplayName:     req.str("displayName"),
		Email:           req.str("email"),
		Password:        req.str("password"),
		ConfirmPassword: req.str("confirmPassword"),
	}
	if err := req.err(); err != nil {
		return nil, toStatus(err)
	}
	if err := validation.ValidateRegistration(form); err != nil {
		return nil, toStatus(err)
	}

	result, err := h.newSession(ctx).RegisterWithPassword(ctx, form.Email, form.Password, form.DisplayName)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.authResponse(ctx, result)
}

// SocialSignIn выполняет вход по ID токену Google или Apple
func (h *DetectiveHandler) SocialSignIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	provider := models.AuthProvider(req.str("provider"))
	token := req.str("idToken")
	if provider != models.ProviderGoogle && provider != models.ProviderApple {
		req.errs.Add("provider", "must be google or apple")
	}
	if token == "" {
		req.errs.Add("idToken", "is required")
	}
	if err := req.err(); err != nil {
		return nil, toStatus(err)
	}

	result, err := h.newSession(ctx).SignInWithSocialToken(ctx, provider, token)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.authResponse(ctx, result)
}

// SignOut отзывает сессионные токены пользователя
func (h *DetectiveHandler) SignOut(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	s := h.newSession(ctx)
	if st := s.Restore(ctx, token); st.Identity == nil {
		return nil, toStatus(apperrors.ErrUnauthenticated)
	}
	if err := s.SignOut(ctx); err != nil {
		return nil, toStatus(err)
	}
	return routeResponse(gate.Unauthenticated)
}

// CreateCharacter создает профиль детектива
func (h *DetectiveHandler) CreateCharacter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := h.authenticate(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	req := newRequest(in)
	input := validation.Character{
		FirstName:        req.str("firstName"),
		LastName:         req.str("lastName"),
		Gender:           req.str("gender"),
		Age:              req.age("age"),
		SexualPreference: req.str("sexualPreference"),
		Skills:           req.skills("skills"),
	}
	if err := req.err(); err != nil {
		return nil, toStatus(err)
	}

	view, err := h.service.CreateCharacter(ctx, id.UID, input)
	if err != nil {
		return nil, toStatus(err)
	}
	return profileResponse(view)
}

// GetProfile возвращает профиль с портретом и званием
func (h *DetectiveHandler) GetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := h.authenticate(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	view, err := h.service.GetProfile(ctx, id.UID)
	if err != nil {
		return nil, toStatus(err)
	}
	return profileResponse(view)
}

// ResetProfile удаляет профиль и возвращает новое состояние навигации
func (h *DetectiveHandler) ResetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := h.authenticate(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := h.service.ResetProfile(ctx, id.UID); err != nil {
		return nil, toStatus(err)
	}

	state, err := h.service.ResolveRoute(ctx, &id)
	if err != nil {
		return nil, toStatus(err)
	}
	return routeResponse(state)
}

// RecordCaseOutcome учитывает итог дела
func (h *DetectiveHandler) RecordCaseOutcome(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := h.authenticate(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	req := newRequest(in)
	solved := req.boolean("solved")
	if err := req.err(); err != nil {
		return nil, toStatus(err)
	}

	view, err := h.service.RecordCaseOutcome(ctx, id.UID, solved)
	if err != nil {
		return nil, toStatus(err)
	}
	return profileResponse(view)
}

// AllocateSkills заменяет распределение очков навыков
func (h *DetectiveHandler) AllocateSkills(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := h.authenticate(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	req := newRequest(in)
	skills := req.skills("skills")
	if err := req.err(); err != nil {
		return nil, toStatus(err)
	}

	view, err := h.service.AllocateSkills(ctx, id.UID, skills)
	if err != nil {
		return nil, toStatus(err)
	}
	return profileResponse(view)
}

// ResolveRoute возвращает группу экранов для текущего пользователя.
// Запрос без токена или с недействительным токеном ведет на экран входа.
func (h *DetectiveHandler) ResolveRoute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var id *models.Identity
	if token, err := bearerToken(ctx); err == nil {
		if st := h.newSession(ctx).Restore(ctx, token); st.Identity != nil {
			id = st.Identity
		}
	}

	state, err := h.service.ResolveRoute(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return routeResponse(state)
}

func (h *DetectiveHandler) authResponse(ctx context.Context, result identity.AuthResult) (*structpb.Struct, error) {
	state, err := h.service.ResolveRoute(ctx, &result.Identity)
	if err != nil {
		// Вход выполнен, но маршрут неизвестен: клиент остается на заставке и повторяет ResolveRoute
		h.logger.Warn("Не удалось определить маршрут после входа",
			zap.String("uid", result.Identity.UID),
			zap.Error(err))
		state = gate.Unresolved
	}
	return authPayload(result, state)
}

// authenticate проверяет сессионный токен из метаданных
func (h *DetectiveHandler) authenticate(ctx context.Context) (models.Identity, error) {
	token, err := bearerToken(ctx)
	if err != nil {
		return models.Identity{}, err
	}
	return h.provider.VerifyToken(ctx, token)
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", apperrors.ErrUnauthenticated
	}
	for _, value := range md.Get(authorizationKey) {
		if len(value) > len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
			if token := strings.TrimSpace(value[len(bearerPrefix):]); token != "" {
				return token, nil
			}
		}
	}
	return "", apperrors.ErrUnauthenticated
}

var _ DetectiveServiceServer = (*DetectiveHandler)(nil)
