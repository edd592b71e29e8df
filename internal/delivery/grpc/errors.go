package grpc

import (
	"context"
	"errors"

	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/profile"
	"DetectiveProfileService/pkg/apperrors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus переводит ошибку приложения в статус gRPC
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		return validationStatus(validationErr)
	}

	var providerErr *apperrors.ProviderError
	if errors.As(err, &providerErr) {
		return status.Error(providerCode(providerErr.Code), identity.FriendlyMessage(err))
	}

	switch {
	case errors.Is(err, apperrors.ErrProfileExists):
		return status.Error(codes.AlreadyExists, "профиль уже создан, сначала выполните сброс")
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, profile.ErrEmptyUID):
		return status.Error(codes.InvalidArgument, err.Error())
	case apperrors.IsNotFound(err):
		return status.Error(codes.NotFound, "профиль не найден")
	case apperrors.IsMalformed(err):
		return status.Error(codes.DataLoss, err.Error())
	case apperrors.IsStorage(err):
		return status.Error(codes.Unavailable, "хранилище профилей недоступно")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func providerCode(code string) codes.Code {
	switch code {
	case identity.CodeEmailAlreadyInUse, identity.CodeAccountExistsWithCred:
		return codes.AlreadyExists
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return codes.InvalidArgument
	case identity.CodeNetworkRequestFailed:
		return codes.Unavailable
	case identity.CodeTooManyRequests:
		return codes.ResourceExhausted
	case identity.CodeOperationNotAllowed:
		return codes.FailedPrecondition
	case identity.CodeInternalError:
		return codes.Internal
	default:
		return codes.Unauthenticated
	}
}

// validationStatus передает ошибки по полям в деталях статуса
func validationStatus(err *apperrors.ValidationError) error {
	st := status.New(codes.InvalidArgument, err.Error())

	fields := make(map[string]interface{}, len(err.Fields))
	for field, message := range err.Fields {
		fields[field] = message
	}
	details, convErr := structpb.NewStruct(fields)
	if convErr != nil {
		return st.Err()
	}
	if withDetails, detailErr := st.WithDetails(details); detailErr == nil {
		return withDetails.Err()
	}
	return st.Err()
}

// ValidationFields извлекает ошибки по полям из статуса InvalidArgument
func ValidationFields(err error) map[string]string {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		return nil
	}
	out := make(map[string]string)
	for _, detail := range st.Details() {
		s, ok := detail.(*structpb.Struct)
		if !ok {
			continue
		}
		for field, value := range s.GetFields() {
			out[field] = value.GetStringValue()
		}
	}
	return out
}
