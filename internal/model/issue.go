package model

import "time"

// IssueStatus はIssueの進捗ステータス。
type IssueStatus string

const (
	IssueStatusBacklog    IssueStatus = "backlog"
	IssueStatusTodo       IssueStatus = "todo"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusDone       IssueStatus = "done"
)

// IssuePriority はIssueの優先度。
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "low"
	IssuePriorityMedium IssuePriority = "medium"
	IssuePriorityHigh   IssuePriority = "high"
)

// IssueStatuses は許可されるステータスの一覧。
var IssueStatuses = []IssueStatus{
	IssueStatusBacklog,
	IssueStatusTodo,
	IssueStatusInProgress,
	IssueStatusDone,
}

// IssuePriorities は許可される優先度の一覧。
var IssuePriorities = []IssuePriority{
	IssuePriorityLow,
	IssuePriorityMedium,
	IssuePriorityHigh,
}

// Valid はステータスが定義済みの値かどうかを返す。
func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid は優先度が定義済みの値かどうかを返す。
func (p IssuePriority) Valid() bool {
	for _, v := range IssuePriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Issue はユーザーが作成した課題を表す。
// CreatedAtはDBが採番し、以後変更されない。
type Issue struct {
	ID          int64
	Title       string
	Description *string
	Status      IssueStatus
	Priority    IssuePriority
	UserID      string
	CreatedAt   time.Time

	// Owner は一覧・詳細取得時にJOINされた作成者情報。JOINしない取得ではnil。
	Owner *IssueOwner
}

// IssueOwner はIssueにJOINされる作成者の公開情報。
type IssueOwner struct {
	ID    string
	Email string
}

// IssuePatch はIssueの部分更新内容を表す。
// nilのフィールドは変更しない。
// DescriptionはDescriptionSetがtrueの場合のみ適用し、nilはNULLへのクリアを意味する。
type IssuePatch struct {
	Title          *string
	Description    *string
	DescriptionSet bool
	Status         *IssueStatus
	Priority       *IssuePriority
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p IssuePatch) IsEmpty() bool {
	return p.Title == nil && !p.DescriptionSet && p.Status == nil && p.Priority == nil
}
