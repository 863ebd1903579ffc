// Package client is the adapter façade: it orchestrates validation,
// command execution, the circuit breaker, the column cache and graph
// assembly behind the read/write contract the board UI consumes.
package client

import (
	"context"

	"github.com/steveyegge/bdboard/internal/breaker"
	"github.com/steveyegge/bdboard/internal/config"
	"github.com/steveyegge/bdboard/internal/types"
)

// CreateFields are the caller-supplied values for a new issue.
type CreateFields struct {
	Title              string
	Description        string
	Design             string
	AcceptanceCriteria string
	Notes              string
	Priority           int
	IssueType          types.IssueType
	Assignee           string
	Labels             []string
}

// UpdateFields are partial-update values; nil means leave unchanged.
type UpdateFields struct {
	Title              *string
	Description        *string
	Design             *string
	AcceptanceCriteria *string
	Notes              *string
	Priority           *int
	IssueType          *types.IssueType
	Assignee           *string
	Status             *types.Status
}

// Board is the contract between this layer and the UI. Every method
// returns typed data or a typed error; nothing here panics across the
// boundary or throws unstructured values.
type Board interface {
	// LoadBoard loads, enriches and assembles the full board,
	// partitioned into columns.
	LoadBoard(ctx context.Context) (map[types.Column][]*types.BoardCard, error)
	// GetColumnPage returns one page of a column, served from the
	// cache when a live entry covers it.
	GetColumnPage(ctx context.Context, col types.Column, offset, limit int) (*types.CardPage, error)
	// GetColumnCount returns the number of cards in a column.
	GetColumnCount(ctx context.Context, col types.Column) (int, error)
	// GetIssueDetail returns one card with its relationship
	// collections attached.
	GetIssueDetail(ctx context.Context, id string) (*types.BoardCard, error)

	CreateIssue(ctx context.Context, fields CreateFields) (*types.Issue, error)
	UpdateIssue(ctx context.Context, id string, fields UpdateFields) error
	SetStatus(ctx context.Context, id string, status types.Status) error
	AddLabel(ctx context.Context, id, label string) error
	RemoveLabel(ctx context.Context, id, label string) error
	// AddDependency records that id depends on otherID: for blocks,
	// otherID blocks id; for parent-child, otherID is id's parent.
	AddDependency(ctx context.Context, id, otherID string, depType types.DependencyType) error
	RemoveDependency(ctx context.Context, id, otherID string) error
	AddComment(ctx context.Context, id, text, author string) error

	Comments(ctx context.Context, id string) ([]*types.Comment, error)
	Stats(ctx context.Context) (*types.Stats, error)
	Health(ctx context.Context) (*types.Health, error)

	// SetWorkspace points the client at a different workspace,
	// resetting the circuit breaker and dropping the cache: failure
	// history and cached pages from one target are meaningless for
	// another.
	SetWorkspace(dir string)
	// BreakerSnapshot exposes circuit diagnostics for operator
	// surfaces.
	BreakerSnapshot() breaker.Snapshot
	// ResetBreaker is the manual operator override for an exhausted
	// circuit.
	ResetBreaker()
}

// New builds the Board implementation selected by opts.Backend.
func New(opts *config.Options) (Board, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch opts.Backend {
	case config.BackendCLI:
		return NewCLIClient(opts), nil
	case config.BackendDirect:
		// The embedded-database adapter ships as a separate
		// component; this build only links the CLI backend.
		return nil, ErrBackendUnavailable
	}
	return nil, ErrBackendUnavailable
}
