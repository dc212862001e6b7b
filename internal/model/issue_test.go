package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestIssueStatus_Valid(t *testing.T) {
	tests := []struct {
		status IssueStatus
		want   bool
	}{
		{IssueStatusBacklog, true},
		{IssueStatusTodo, true},
		{IssueStatusInProgress, true},
		{IssueStatusDone, true},
		{"in-progress", false},
		{"DONE", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("IssueStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestIssuePriority_Valid(t *testing.T) {
	tests := []struct {
		priority IssuePriority
		want     bool
	}{
		{IssuePriorityLow, true},
		{IssuePriorityMedium, true},
		{IssuePriorityHigh, true},
		{"urgent", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.priority.Valid(); got != tt.want {
			t.Errorf("IssuePriority(%q).Valid() = %v, want %v", tt.priority, got, tt.want)
		}
	}
}

func TestIssuePatch_IsEmpty(t *testing.T) {
	title := "t"
	status := IssueStatusDone

	tests := []struct {
		name  string
		patch IssuePatch
		want  bool
	}{
		{"zero value", IssuePatch{}, true},
		{"title", IssuePatch{Title: &title}, false},
		{"description cleared", IssuePatch{DescriptionSet: true}, false},
		{"description pointer without set flag", IssuePatch{Description: &title}, true},
		{"status", IssuePatch{Status: &status}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.patch.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActionResult_Constructors(t *testing.T) {
	tests := []struct {
		name        string
		result      ActionResult
		wantSuccess bool
		wantCode    ResultCode
	}{
		{"succeeded", Succeeded("ok"), true, ResultOK},
		{"invalid", Invalid("bad", map[string][]string{"title": {"required"}}), false, ResultInvalid},
		{"unauthorized", Unauthorized("Unauthorized access", "Unauthorized"), false, ResultUnauthorized},
		{"failed", Failed("Failed to create issue", "boom"), false, ResultFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", tt.result.Success, tt.wantSuccess)
			}
			if tt.result.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.result.Code, tt.wantCode)
			}
		})
	}
}

func TestActionResult_JSONOmitsCodeAndEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Succeeded("Issue created successfully"))
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}

	got := string(raw)
	want := `{"success":true,"message":"Issue created successfully"}`
	if got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
	if strings.Contains(got, "Code") {
		t.Errorf("result code must not be serialized: %s", got)
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewIssueNotFoundError(12)
	if !strings.HasPrefix(err.Error(), "["+ErrCodeIssueNotFound+"]") {
		t.Errorf("Error() = %q, want prefix [%s]", err.Error(), ErrCodeIssueNotFound)
	}
}
