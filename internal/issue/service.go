// Package issue はIssueの作成・更新・削除アクションと読み取りを提供する。
// 書き込みアクションは呼び出し元の認証を確認してからリポジトリに委譲する。
package issue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/issuetracker/internal/auth"
	"github.com/hitoshi/issuetracker/internal/cache"
	"github.com/hitoshi/issuetracker/internal/metrics"
	"github.com/hitoshi/issuetracker/internal/model"
	"github.com/hitoshi/issuetracker/internal/repository"
	"github.com/hitoshi/issuetracker/internal/validate"
)

// CacheTag はIssue一覧のキャッシュに付けるタグ。Issueへの書き込みで無効化する。
const CacheTag = "issues"

const listCacheKey = "issues:list"

// メトリクスのactionラベル値。
const (
	actionCreate    = "create"
	actionUpdate    = "update"
	actionDelete    = "delete"
	actionAPICreate = "api_create"
)

const msgUnauthorized = "Unauthorized access"

// InputError はAPIからの作成で入力値が不正な場合のエラー。Messageはそのまま利用者向けに返す。
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// ErrTitleAndUserRequired はAPIからの作成でtitleまたはuserIdがない場合のエラー。
var ErrTitleAndUserRequired = &InputError{Message: "Issues title and user id are required"}

// CurrentUserResolver はリクエストの現在ユーザーを解決する。
type CurrentUserResolver interface {
	CurrentUser(ctx context.Context, scope *auth.RequestScope) *model.User
}

// Service はIssueのアクションと読み取りを提供する。
type Service struct {
	repo     repository.IssueRepository
	resolver CurrentUserResolver
	cache    *cache.TagCache
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	repo repository.IssueRepository,
	resolver CurrentUserResolver,
	tagCache *cache.TagCache,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if tagCache == nil {
		tagCache = cache.NewTagCache(cache.DefaultTTL, mc)
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		cache:    tagCache,
		metrics:  mc,
	}
}

// Create は認証済みユーザーとしてIssueを作成する。
// 未認証の場合はリポジトリに触れずにUnauthorizedを返す。
func (s *Service) Create(ctx context.Context, scope *auth.RequestScope, in CreateInput) model.ActionResult {
	user := s.resolver.CurrentUser(ctx, scope)
	if user == nil {
		s.metrics.RecordIssueAction(actionCreate, metrics.OutcomeUnauthorized)
		return model.Unauthorized(msgUnauthorized, "Unauthorized")
	}

	if err := in.Validate(); err != nil {
		return s.invalid(actionCreate, "Validation failed", err)
	}

	issue := &model.Issue{
		Title:       in.Title,
		Description: normalizeDescription(in.Description),
		Status:      model.IssueStatus(in.Status),
		Priority:    model.IssuePriority(in.Priority),
		UserID:      in.UserID,
	}
	if err := s.repo.Create(ctx, issue); err != nil {
		return s.failed(actionCreate, "An error occurred while creating the issue", "Failed to create issue", err)
	}

	s.cache.InvalidateTag(CacheTag)
	slog.Info("issue created",
		slog.Int64("issue_id", issue.ID),
		slog.String("user_id", user.ID),
	)
	s.metrics.RecordIssueAction(actionCreate, metrics.OutcomeSuccess)
	return model.Succeeded("Issue created successfully")
}

// Update は指定されたフィールドだけを更新する。
// 認証は必須だが、所有者によるスコープは行わない。
func (s *Service) Update(ctx context.Context, scope *auth.RequestScope, id int64, in UpdateInput) model.ActionResult {
	user := s.resolver.CurrentUser(ctx, scope)
	if user == nil {
		s.metrics.RecordIssueAction(actionUpdate, metrics.OutcomeUnauthorized)
		return model.Unauthorized(msgUnauthorized, "Unauthorized")
	}

	if err := in.Validate(); err != nil {
		return s.invalid(actionUpdate, "Invalid inputs", err)
	}

	patch := in.Patch()
	if err := s.repo.Update(ctx, id, patch); err != nil {
		return s.failed(actionUpdate, "Failed to update issue", "Failed to update issue", err)
	}

	if !patch.IsEmpty() {
		s.cache.InvalidateTag(CacheTag)
	}
	slog.Info("issue updated",
		slog.Int64("issue_id", id),
		slog.String("user_id", user.ID),
	)
	s.metrics.RecordIssueAction(actionUpdate, metrics.OutcomeSuccess)
	return model.Succeeded("Issue updated successfully")
}

// Delete は呼び出し元が所有するIssueを削除する。
// 該当する行がない場合（存在しない・他人のIssue）も成功を返す。
func (s *Service) Delete(ctx context.Context, scope *auth.RequestScope, id int64) model.ActionResult {
	user := s.resolver.CurrentUser(ctx, scope)
	if user == nil {
		s.metrics.RecordIssueAction(actionDelete, metrics.OutcomeUnauthorized)
		return model.ActionResult{Success: false, Message: msgUnauthorized, Code: model.ResultUnauthorized}
	}

	if err := s.repo.DeleteByIDAndOwner(ctx, id, user.ID); err != nil {
		return s.failed(actionDelete, "Failed to delete issue", "Failed to delete issue", err)
	}

	s.cache.InvalidateTag(CacheTag)
	slog.Info("issue delete requested",
		slog.Int64("issue_id", id),
		slog.String("user_id", user.ID),
	)
	s.metrics.RecordIssueAction(actionDelete, metrics.OutcomeSuccess)
	return model.Succeeded(fmt.Sprintf("Deleted issue with id of %d successfully", id))
}

// List は作成者付きのIssue一覧を新しい順に返す。結果はCacheTagでキャッシュする。
// 返したスライスと要素はキャッシュと共有されるため書き換えてはならない。
func (s *Service) List(ctx context.Context) ([]*model.Issue, error) {
	issues, err := cache.Remember(ctx, s.cache, listCacheKey, []string{CacheTag}, s.repo.ListWithOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues: %w", err)
	}
	return issues, nil
}

// Get は作成者付きのIssueを返す。見つからない場合はnilを返す。キャッシュしない。
func (s *Service) Get(ctx context.Context, id int64) (*model.Issue, error) {
	issue, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue: %w", err)
	}
	return issue, nil
}

// CreateFromAPI は読み取りAPIからIssueを作成し、作成した行を返す。
// 認証は要求しない。titleまたはuserIdがない場合はErrTitleAndUserRequired、
// status・priorityが不正な場合は*InputErrorを返す。
func (s *Service) CreateFromAPI(ctx context.Context, in APICreateInput) (*model.Issue, error) {
	if in.Title == "" || in.UserID == "" {
		s.metrics.RecordIssueAction(actionAPICreate, metrics.OutcomeInvalid)
		return nil, ErrTitleAndUserRequired
	}

	issue := &model.Issue{
		Title:       in.Title,
		Description: normalizeDescription(in.Description),
		Status:      model.IssueStatusBacklog,
		Priority:    model.IssuePriorityLow,
		UserID:      in.UserID,
	}
	if in.Status != "" {
		issue.Status = model.IssueStatus(in.Status)
	}
	if in.Priority != "" {
		issue.Priority = model.IssuePriority(in.Priority)
	}
	if !issue.Status.Valid() {
		s.metrics.RecordIssueAction(actionAPICreate, metrics.OutcomeInvalid)
		return nil, &InputError{Message: msgInvalidStatus}
	}
	if !issue.Priority.Valid() {
		s.metrics.RecordIssueAction(actionAPICreate, metrics.OutcomeInvalid)
		return nil, &InputError{Message: msgInvalidPriority}
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		s.metrics.RecordIssueAction(actionAPICreate, metrics.OutcomeFailed)
		return nil, fmt.Errorf("failed to add issue: %w", err)
	}

	s.cache.InvalidateTag(CacheTag)
	slog.Info("issue created via api", slog.Int64("issue_id", issue.ID))
	s.metrics.RecordIssueAction(actionAPICreate, metrics.OutcomeSuccess)
	return issue, nil
}

func (s *Service) invalid(action, message string, err error) model.ActionResult {
	errs, ok := validate.FieldErrors(err)
	if !ok {
		return s.failed(action, message, message, err)
	}
	slog.Debug("issue input rejected",
		slog.String("action", action),
		slog.Any("fields", validate.Fields(errs)),
	)
	s.metrics.RecordIssueAction(action, metrics.OutcomeInvalid)
	return model.Invalid(message, errs)
}

func (s *Service) failed(action, message, errText string, err error) model.ActionResult {
	slog.Error("issue action failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	s.metrics.RecordIssueAction(action, metrics.OutcomeFailed)
	return model.Failed(message, errText)
}
