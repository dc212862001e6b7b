package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/hitoshi/issuetracker/internal/metrics"
	"github.com/hitoshi/issuetracker/internal/model"
	"github.com/hitoshi/issuetracker/internal/repository"
	"github.com/hitoshi/issuetracker/internal/validate"
)

// メトリクスのaction ラベル値。
const (
	actionSignIn  = "signin"
	actionSignUp  = "signup"
	actionSignOut = "signout"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidEmail       = "Invalid email format"
)

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, storedHash string) bool
}

// SignInInput はサインインフォームの入力。
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate は入力の形式を検証する。
func (in SignInInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error(msgInvalidEmail),
		),
		validation.Field(&in.Password,
			validation.Required.Error("Password is required"),
		),
	)
}

// SignUpInput はサインアップフォームの入力。
type SignUpInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate は入力の形式を検証する。
func (in SignUpInput) Validate() error {
	const tooShort = "Password must be at least 6 characters"
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error(msgInvalidEmail),
		),
		validation.Field(&in.Password,
			validation.Required.Error(tooShort),
			validation.Length(6, 0).Error(tooShort),
		),
		validation.Field(&in.ConfirmPassword,
			validation.Required.Error("Please confirm your password"),
			validate.Equals(in.Password, "Passwords don't match"),
		),
	)
}

// Service はサインイン・サインアップ・サインアウトを行う。
// いずれの操作もエラーを返さず、結果をmodel.ActionResultで表す。
type Service struct {
	users     repository.UserRepository
	sessions  SessionStore
	transport SessionTransport
	hasher    PasswordHasher
	metrics   metrics.MetricsCollector
	newUserID func() string

	// placeholderOnce は未登録メールアドレスの照合に使うハッシュを一度だけ作る
	placeholderOnce sync.Once
	placeholderHash string
}

// NewService はServiceを生成する。mcがnilの場合はメトリクスを記録しない。
func NewService(
	users repository.UserRepository,
	sessions SessionStore,
	transport SessionTransport,
	hasher PasswordHasher,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		transport: transport,
		hasher:    hasher,
		metrics:   mc,
		newUserID: func() string { return uuid.New().String() },
	}
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は同じ結果を返す。
func (s *Service) SignIn(ctx context.Context, scope *RequestScope, in SignInInput) model.ActionResult {
	if err := in.Validate(); err != nil {
		return s.invalid(actionSignIn, "Incorrect or missing field", err)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return s.failed(actionSignIn, "Sign in failed", err)
	}
	if !s.verifyPassword(in.Password, user) {
		s.metrics.RecordAuthAction(actionSignIn, metrics.OutcomeUnauthorized)
		return model.ActionResult{
			Success: false,
			Message: msgInvalidCredentials,
			Errors:  map[string][]string{"email": {msgInvalidCredentials}},
			Code:    model.ResultUnauthorized,
		}
	}

	if err := s.startSession(ctx, scope, user); err != nil {
		return s.failed(actionSignIn, "Sign in failed", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))
	s.metrics.RecordAuthAction(actionSignIn, metrics.OutcomeSuccess)
	return model.Succeeded("Signed in successfully")
}

// verifyPassword はuserのパスワードを照合する。
// userがnilでもハッシュ照合を1回行い、応答時間で登録の有無が分からないようにする。
func (s *Service) verifyPassword(plaintext string, user *model.User) bool {
	if user != nil {
		return s.hasher.Verify(plaintext, user.PasswordHash)
	}

	s.placeholderOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			slog.Error("failed to prepare placeholder hash", slog.String("error", err.Error()))
			return
		}
		s.placeholderHash = hash
	})
	s.hasher.Verify(plaintext, s.placeholderHash)
	return false
}

// SignUp はユーザーを登録し、セッションを発行する。
// メールアドレスが登録済みの場合は事前確認と書き込み時の一意制約の両方で検出する。
func (s *Service) SignUp(ctx context.Context, scope *RequestScope, in SignUpInput) model.ActionResult {
	if err := in.Validate(); err != nil {
		return s.invalid(actionSignUp, "Validation Failed", err)
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return s.failed(actionSignUp, "Failed to signup", err)
	}
	if existing != nil {
		return s.emailTaken()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return s.failed(actionSignUp, "Failed to signup", err)
	}

	user := &model.User{
		ID:           s.newUserID(),
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return s.emailTaken()
		}
		return s.failed(actionSignUp, "Failed to signup", err)
	}

	if err := s.startSession(ctx, scope, user); err != nil {
		return s.failed(actionSignUp, "Failed to signup", err)
	}

	slog.Info("user signed up", slog.String("user_id", user.ID))
	s.metrics.RecordAuthAction(actionSignUp, metrics.OutcomeSuccess)
	return model.Succeeded("User has been successfully created")
}

// SignOut は現在のセッションを失効させ、セッションCookieを削除する。
// 失効に失敗してもCookieは必ず削除する。リダイレクトは呼び出し側が行う。
func (s *Service) SignOut(ctx context.Context, scope *RequestScope) model.ActionResult {
	if scope == nil {
		return s.signOutFailed(fmt.Errorf("request scope is missing"))
	}

	sessionID := s.transport.Read(scope.R)
	s.transport.Clear(scope.W)
	scope.remember(nil)

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return s.signOutFailed(err)
	}

	s.metrics.RecordAuthAction(actionSignOut, metrics.OutcomeSuccess)
	return model.Succeeded("Logged out successfully")
}

// ForgetSession はセッションCookieを削除し、scopeの現在ユーザーを消す。
// サーバー側のセッションは失効させない。要求元を確認できないサインアウトで使う。
func (s *Service) ForgetSession(scope *RequestScope) {
	if scope == nil {
		return
	}
	s.transport.Clear(scope.W)
	scope.remember(nil)
	s.metrics.RecordAuthAction(actionSignOut, metrics.OutcomeUnauthorized)
}

// startSession はセッションを発行してCookieに設定し、scopeの現在ユーザーを差し替える。
func (s *Service) startSession(ctx context.Context, scope *RequestScope, user *model.User) error {
	if scope == nil {
		return fmt.Errorf("request scope is missing")
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return err
	}

	s.transport.Set(scope.W, sess)
	scope.remember(user)
	return nil
}

func (s *Service) invalid(action, message string, err error) model.ActionResult {
	errs, ok := validate.FieldErrors(err)
	if !ok {
		return s.failed(action, message, err)
	}
	s.metrics.RecordAuthAction(action, metrics.OutcomeInvalid)
	return model.Invalid(message, errs)
}

func (s *Service) failed(action, message string, err error) model.ActionResult {
	slog.Error("auth action failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	s.metrics.RecordAuthAction(action, metrics.OutcomeFailed)
	return model.Failed(message, message)
}

func (s *Service) emailTaken() model.ActionResult {
	s.metrics.RecordAuthAction(actionSignUp, metrics.OutcomeInvalid)
	return model.Invalid("User already exists", map[string][]string{
		"email": {"This email has already been used"},
	})
}

func (s *Service) signOutFailed(err error) model.ActionResult {
	slog.Error("auth action failed",
		slog.String("action", actionSignOut),
		slog.String("error", err.Error()),
	)
	s.metrics.RecordAuthAction(actionSignOut, metrics.OutcomeFailed)
	return model.ActionResult{Success: false, Message: "Failed to signout", Code: model.ResultFailed}
}
