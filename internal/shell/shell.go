// Package shell терминальный клиент: сессия, навигационный шлюз и операции профиля в одном процессе.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"DetectiveProfileService/internal/gate"
	"DetectiveProfileService/internal/identity"
	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/internal/service"
	"DetectiveProfileService/internal/session"
	"DetectiveProfileService/internal/validation"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

const helpText = `Команды:
  register <email> <password> <name...>
  login <email> <password>
  social <google|apple> <id-token>
  logout
  create <first> <last> <gender> <age> <preference>
  profile
  solve | fail
  skills <skill>=<points>...
  reset
  route
  help
  quit`

// Shell обрабатывает команды терминала
type Shell struct {
	session *session.Session
	gate    *gate.Gate
	service service.DetectiveServiceInterface
	out     io.Writer
	logger  *zap.Logger
}

// New создает оболочку поверх сессии и шлюза
func New(sess *session.Session, g *gate.Gate, svc service.DetectiveServiceInterface, out io.Writer, logger *zap.Logger) *Shell {
	return &Shell{
		session: sess,
		gate:    g,
		service: svc,
		out:     out,
		logger:  logger,
	}
}

// Navigator печатает переходы шлюза в терминал
type Navigator struct {
	Out io.Writer
}

func (n Navigator) Replace(ctx context.Context, route gate.Route) error {
	_, err := fmt.Fprintf(n.Out, "→ %s\n", route)
	return err
}

func (n Navigator) ShowFailure(ctx context.Context, err error) {
	fmt.Fprintf(n.Out, "Не удалось загрузить профиль: %v\n", err)
}

// Run читает команды до конца ввода, команды quit или отмены ctx
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		if err := s.Execute(ctx, args[0], args[1:]); err != nil {
			s.report(err)
		}
	}
}

// Execute выполняет одну команду
func (s *Shell) Execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, helpText)
		return nil
	case "register":
		if len(args) < 3 {
			return usage("register <email> <password> <name...>")
		}
		input := validation.Registration{
			DisplayName:     strings.Join(args[2:], " "),
			Email:           args[0],
			Password:        args[1],
			ConfirmPassword: args[1],
		}
		if err := validation.ValidateRegistration(input); err != nil {
			return err
		}
		result, err := s.session.RegisterWithPassword(ctx, input.Email, input.Password, input.DisplayName)
		if err != nil {
			return err
		}
		s.greet(result)
		return nil
	case "login":
		if len(args) != 2 {
			return usage("login <email> <password>")
		}
		if err := validation.ValidateLogin(validation.Login{Email: args[0], Password: args[1]}); err != nil {
			return err
		}
		result, err := s.session.SignInWithPassword(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		s.greet(result)
		return nil
	case "social":
		if len(args) != 2 {
			return usage("social <google|apple> <id-token>")
		}
		result, err := s.session.SignInWithSocialToken(ctx, models.AuthProvider(args[0]), args[1])
		if err != nil {
			return err
		}
		s.greet(result)
		return nil
	case "logout":
		return s.session.SignOut(ctx)
	case "route":
		state, err := s.gate.Evaluate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s %s\n", state, state.Route())
		return nil
	}

	switch cmd {
	case "create", "profile", "solve", "fail", "skills", "reset":
	default:
		return fmt.Errorf("неизвестная команда %q, введите help", cmd)
	}

	id := s.session.State().Identity
	if id == nil {
		return apperrors.ErrUnauthenticated
	}

	switch cmd {
	case "create":
		if len(args) != 5 {
			return usage("create <first> <last> <gender> <age> <preference>")
		}
		view, err := s.service.CreateCharacter(ctx, id.UID, validation.Character{
			FirstName:        args[0],
			LastName:         args[1],
			Gender:           args[2],
			Age:              args[3],
			SexualPreference: args[4],
		})
		if err != nil {
			return err
		}
		s.printProfile(view)
		return s.profileChanged(ctx)
	case "profile":
		view, err := s.service.GetProfile(ctx, id.UID)
		if err != nil {
			return err
		}
		s.printProfile(view)
		return nil
	case "solve", "fail":
		view, err := s.service.RecordCaseOutcome(ctx, id.UID, cmd == "solve")
		if err != nil {
			return err
		}
		s.printProfile(view)
		return nil
	case "skills":
		skills, err := parseSkills(args)
		if err != nil {
			return err
		}
		view, err := s.service.AllocateSkills(ctx, id.UID, skills)
		if err != nil {
			return err
		}
		s.printProfile(view)
		return nil
	case "reset":
		if err := s.service.ResetProfile(ctx, id.UID); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Профиль сброшен")
		return s.profileChanged(ctx)
	}
	return nil
}

func (s *Shell) profileChanged(ctx context.Context) error {
	_, err := s.gate.NotifyProfileChanged(ctx)
	return err
}

func (s *Shell) greet(result identity.AuthResult) {
	fmt.Fprintf(s.out, "Добро пожаловать, %s\n", result.Identity.DisplayNameOrDefault())
}

func (s *Shell) printProfile(view *service.ProfileView) {
	p := view.Profile
	fmt.Fprintf(s.out, "%s, %s, %s лет (%s)\n", p.FullName(), p.Gender, p.Age, view.Portrait.DisplayName())
	fmt.Fprintf(s.out, "Ранг: %s, очки: %d", view.Rank, view.Score)
	if view.NextRank != nil {
		fmt.Fprintf(s.out, ", до ранга %s: %d", view.NextRank.Rank, view.ScoreToNextRank)
	}
	fmt.Fprintf(s.out, "\nДела: раскрыто %d, ошибок %d\n", p.CasesWon, p.WrongGuesses)
	for _, key := range models.SkillKeys {
		fmt.Fprintf(s.out, "  %-12s %d\n", key, p.Skills[key])
	}
	fmt.Fprintf(s.out, "Свободных очков: %d\n", view.SkillPointsLeft)
}

func (s *Shell) report(err error) {
	var validationErr *apperrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		for _, field := range slices.Sorted(maps.Keys(validationErr.Fields)) {
			fmt.Fprintf(s.out, "%s: %s\n", field, validationErr.Fields[field])
		}
	case identity.Code(err) != "":
		fmt.Fprintln(s.out, identity.FriendlyMessage(err))
	default:
		s.logger.Debug("Команда завершилась ошибкой", zap.Error(err))
		fmt.Fprintf(s.out, "Ошибка: %v\n", err)
	}
}

func parseSkills(args []string) (models.SkillAllocation, error) {
	skills := make(models.SkillAllocation, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, usage("skills <skill>=<points>...")
		}
		points, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("очки навыка %s должны быть числом", key)
		}
		skills[key] = points
	}
	return skills, nil
}

func usage(text string) error {
	return fmt.Errorf("использование: %s", text)
}
