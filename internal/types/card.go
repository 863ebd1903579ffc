package types

// CardRef is a lightweight pointer to a related issue. Title may be
// empty when the relationship record did not carry one and the issue
// itself was outside the loaded set.
type CardRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// BoardCard is an Issue enriched with its derived relationship
// collections. The derived fields are read-side projections recomputed
// on every board assembly; they are never persisted and must not be
// mutated by consumers.
type BoardCard struct {
	*Issue

	Parent    *CardRef  `json:"parent,omitempty"`
	Children  []CardRef `json:"children,omitempty"`
	Blocks    []CardRef `json:"blocks,omitempty"`
	BlockedBy []CardRef `json:"blocked_by,omitempty"`

	// IsReady is true when the issue is open and nothing blocks it.
	IsReady bool `json:"is_ready"`
}

// Column is one of the status-derived buckets the board partitions
// issues into.
type Column string

// Board column constants
const (
	ColumnReady      Column = "ready"
	ColumnInProgress Column = "in_progress"
	ColumnBlocked    Column = "blocked"
	ColumnClosed     Column = "closed"
)

// Columns lists all board columns in display order.
func Columns() []Column {
	return []Column{ColumnReady, ColumnInProgress, ColumnBlocked, ColumnClosed}
}

// IsValid checks if the column value is valid
func (c Column) IsValid() bool {
	switch c {
	case ColumnReady, ColumnInProgress, ColumnBlocked, ColumnClosed:
		return true
	}
	return false
}

// ColumnForCard maps a card to the column it belongs on. Closed and
// in-progress issues go to their status columns; open issues split on
// readiness.
func ColumnForCard(c *BoardCard) Column {
	switch c.Status {
	case StatusClosed:
		return ColumnClosed
	case StatusInProgress:
		return ColumnInProgress
	}
	if c.IsReady {
		return ColumnReady
	}
	return ColumnBlocked
}

// CardPage is one page of a column, with enough metadata for the UI to
// paginate without a separate count call.
type CardPage struct {
	Column Column       `json:"column"`
	Offset int          `json:"offset"`
	Cards  []*BoardCard `json:"cards"`
	// Total is the column size when known, or -1 when the backing
	// fetch was truncated and the true size is unknown.
	Total int `json:"total"`
}
