// Package types defines the data structures the board client exchanges
// with the bd CLI and exposes to UI consumers.
package types

import (
	"fmt"
	"time"
)

// Issue is one trackable work item as the bd CLI reports it.
// Field names and JSON tags mirror bd's --json output.
type Issue struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description,omitempty"`
	Design             string        `json:"design,omitempty"`
	AcceptanceCriteria string        `json:"acceptance_criteria,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Status             Status        `json:"status,omitempty"`
	Priority           int           `json:"priority"` // No omitempty: 0 is valid (P0/critical)
	IssueType          IssueType     `json:"issue_type,omitempty"`
	Assignee           string        `json:"assignee,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	ClosedAt           *time.Time    `json:"closed_at,omitempty"`
	Labels             []string      `json:"labels,omitempty"`
	Dependencies       []*Dependency `json:"dependencies,omitempty"`
}

// Validate checks that the issue has usable field values before it is
// handed to the UI or echoed back to bd.
func (i *Issue) Validate() error {
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", i.Priority)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	if !i.IssueType.IsValid() {
		return fmt.Errorf("invalid issue type: %s", i.IssueType)
	}
	if i.Status == StatusClosed && i.ClosedAt == nil {
		return fmt.Errorf("closed issues must have closed_at timestamp")
	}
	return nil
}

// SetDefaults applies default values for fields bd omits in compact
// JSON output. Call after json.Unmarshal.
func (i *Issue) SetDefaults() {
	if i.Status == "" {
		i.Status = StatusOpen
	}
	if i.IssueType == "" {
		i.IssueType = TypeTask
	}
}

// Status represents the current state of an issue
type Status string

// Issue status constants
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return true
	}
	return false
}

// IssueType categorizes the kind of work
type IssueType string

// Issue type constants
const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeChore   IssueType = "chore"
)

// IsValid checks if the issue type value is valid
func (t IssueType) IsValid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore:
		return true
	}
	return false
}

// Dependency is a directed relationship edge recorded on its source
// issue. For parent-child edges the source is the parent; for blocks
// edges the source is the blocker. TargetID names the other issue.
type Dependency struct {
	IssueID     string         `json:"issue_id"`
	TargetID    string         `json:"target_id"`
	TargetTitle string         `json:"target_title,omitempty"`
	Type        DependencyType `json:"type"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedBy   string         `json:"created_by,omitempty"`
}

// DependencyType categorizes the relationship
type DependencyType string

// Dependency type constants. Only the workflow types participate in
// board assembly; bd may report others, which flow through untouched.
const (
	DepBlocks      DependencyType = "blocks"
	DepParentChild DependencyType = "parent-child"
)

// IsValid checks if the dependency type value is valid.
// bd accepts custom edge types, so any non-empty string up to 50
// characters passes.
func (d DependencyType) IsValid() bool {
	return len(d) > 0 && len(d) <= 50
}

// AffectsReadyWork returns true if this dependency type blocks work.
func (d DependencyType) AffectsReadyWork() bool {
	return d == DepBlocks || d == DepParentChild
}

// Comment represents a comment on an issue
type Comment struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats holds aggregate issue counts as reported by bd stats.
type Stats struct {
	TotalIssues int `json:"total_issues"`
	OpenIssues  int `json:"open_issues"`
	InProgress  int `json:"in_progress"`
	Blocked     int `json:"blocked"`
	ClosedIssue int `json:"closed_issues"`
	ReadyIssues int `json:"ready_issues"`
}

// Health is the result of a bd daemon health probe.
type Health struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds,omitempty"`
	Error  string  `json:"error,omitempty"`
}
