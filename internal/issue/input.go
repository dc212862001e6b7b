package issue

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/hitoshi/issuetracker/internal/model"
)

const (
	msgTitleTooShort   = "Title must be at least 3 characters"
	msgTitleTooLong    = "Title must be less than 100 characters"
	msgInvalidStatus   = "Please select a valid status"
	msgInvalidPriority = "Please select a valid priority"
	msgUserIDRequired  = "User ID is required"

	titleMinLen = 3
	titleMaxLen = 100
)

var (
	statusValues   = enumValues(model.IssueStatuses)
	priorityValues = enumValues(model.IssuePriorities)
)

func enumValues[T ~string](values []T) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// CreateInput はIssue作成アクションの入力。
type CreateInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	UserID      string  `json:"userId"`
}

// Validate は全フィールドを検証する。
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error(msgTitleTooShort),
			validation.Length(titleMinLen, 0).Error(msgTitleTooShort),
			validation.Length(0, titleMaxLen).Error(msgTitleTooLong),
		),
		validation.Field(&in.Status,
			validation.Required.Error(msgInvalidStatus),
			validation.In(statusValues...).Error(msgInvalidStatus),
		),
		validation.Field(&in.Priority,
			validation.Required.Error(msgInvalidPriority),
			validation.In(priorityValues...).Error(msgInvalidPriority),
		),
		validation.Field(&in.UserID,
			validation.Required.Error(msgUserIDRequired),
		),
	)
}

// OptionalString は「未指定」「null」「値あり」を区別するJSON文字列。
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON はフィールドが存在した場合に呼ばれ、Setをtrueにする。
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// UpdateInput はIssue更新アクションの入力。nilのフィールドは変更しない。
// UserIDは検証のみ行い、更新対象にはしない。
type UpdateInput struct {
	Title       *string        `json:"title"`
	Description OptionalString `json:"description"`
	Status      *string        `json:"status"`
	Priority    *string        `json:"priority"`
	UserID      *string        `json:"userId"`
}

// Validate は指定されたフィールドだけを作成時と同じ規則で検証する。
func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.NilOrNotEmpty.Error(msgTitleTooShort),
			validation.Length(titleMinLen, 0).Error(msgTitleTooShort),
			validation.Length(0, titleMaxLen).Error(msgTitleTooLong),
		),
		validation.Field(&in.Status,
			validation.NilOrNotEmpty.Error(msgInvalidStatus),
			validation.In(statusValues...).Error(msgInvalidStatus),
		),
		validation.Field(&in.Priority,
			validation.NilOrNotEmpty.Error(msgInvalidPriority),
			validation.In(priorityValues...).Error(msgInvalidPriority),
		),
		validation.Field(&in.UserID,
			validation.NilOrNotEmpty.Error(msgUserIDRequired),
		),
	)
}

// Patch は検証済みの入力をリポジトリ用のIssuePatchに変換する。
// 説明の空文字列はNULLへのクリアとして扱う。
func (in UpdateInput) Patch() model.IssuePatch {
	patch := model.IssuePatch{Title: in.Title}
	if in.Description.Set {
		patch.DescriptionSet = true
		patch.Description = normalizeDescription(in.Description.Value)
	}
	if in.Status != nil {
		s := model.IssueStatus(*in.Status)
		patch.Status = &s
	}
	if in.Priority != nil {
		p := model.IssuePriority(*in.Priority)
		patch.Priority = &p
	}
	return patch
}

// APICreateInput は読み取りAPI（POST /issue）の入力。
// status・priority省略時はbacklog・lowになる。
type APICreateInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	UserID      string  `json:"userId"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
}

func normalizeDescription(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	return d
}
