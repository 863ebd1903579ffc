package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/bdboard/internal/breaker"
	"github.com/steveyegge/bdboard/internal/cliexec"
	"github.com/steveyegge/bdboard/internal/colcache"
	"github.com/steveyegge/bdboard/internal/config"
	"github.com/steveyegge/bdboard/internal/debug"
	"github.com/steveyegge/bdboard/internal/graph"
	"github.com/steveyegge/bdboard/internal/types"
	"github.com/steveyegge/bdboard/internal/validation"
)

// ShowBatchSize caps how many issue IDs one bd show call carries.
// Larger batches run into CLI argument and output limits.
const ShowBatchSize = 50

// ErrIssueNotFound is returned by GetIssueDetail for unknown IDs.
var ErrIssueNotFound = fmt.Errorf("issue not found")

// CLIClient implements Board by shelling out to the bd executable.
// It exclusively owns its circuit breaker and column cache; two
// clients pointed at different workspaces share nothing.
type CLIClient struct {
	mu   sync.Mutex
	opts config.Options

	runner    cliexec.Runner
	newRunner func(dir string) cliexec.Runner

	brk   *breaker.Breaker
	cache *colcache.Cache
}

// NewCLIClient builds a client that invokes opts.BdPath in
// opts.Workspace.
func NewCLIClient(opts *config.Options) *CLIClient {
	c := &CLIClient{opts: *opts}
	c.newRunner = func(dir string) cliexec.Runner {
		return cliexec.New(c.opts.BdPath, dir)
	}
	c.runner = c.newRunner(opts.Workspace)
	c.brk = breaker.New(c.recoveryProbe)
	c.cache = colcache.NewWithConfig(opts.CacheTTL, colcache.DefaultOverFetch, colcache.DefaultMaxEntry)
	return c
}

// NewCLIClientWithRunner builds a client around an injected Runner.
// Tests use this; SetWorkspace keeps the injected runner.
func NewCLIClientWithRunner(opts *config.Options, r cliexec.Runner) *CLIClient {
	c := &CLIClient{opts: *opts}
	c.newRunner = func(string) cliexec.Runner { return r }
	c.runner = r
	c.brk = breaker.New(c.recoveryProbe)
	c.cache = colcache.NewWithConfig(opts.CacheTTL, colcache.DefaultOverFetch, colcache.DefaultMaxEntry)
	return c
}

func (c *CLIClient) run(ctx context.Context, argv []string) (json.RawMessage, error) {
	c.mu.Lock()
	r := c.runner
	timeout := c.opts.Timeout
	c.mu.Unlock()
	return r.Run(ctx, argv, timeout)
}

// --- reads ---

// LoadBoard loads the capped issue list, enriches it with
// relationship detail in breaker-gated batches, assembles the
// dependency graph and partitions the cards into columns. The result
// also repopulates the column cache.
func (c *CLIClient) LoadBoard(ctx context.Context) (map[types.Column][]*types.BoardCard, error) {
	return c.loadBoard(ctx, c.opts.MaxIssues)
}

// loadBoard is LoadBoard with an explicit list fetch size; deep page
// requests pass a larger one than the default board load.
func (c *CLIClient) loadBoard(ctx context.Context, limit int) (map[types.Column][]*types.BoardCard, error) {
	cards, truncated, err := c.loadCards(ctx, limit)
	if err != nil {
		return nil, err
	}
	cols := graph.Partition(cards)
	for col, cc := range cols {
		sortCards(cc)
		c.cache.Put(col, cc, !truncated)
	}
	return cols, nil
}

// GetColumnPage serves one page of a column, from the cache when a
// live entry covers offset+limit, otherwise via a fresh board load.
func (c *CLIClient) GetColumnPage(ctx context.Context, col types.Column, offset, limit int) (*types.CardPage, error) {
	if !col.IsValid() {
		return nil, &validation.InvalidInputError{Field: "column", Value: string(col), Reason: "unknown column"}
	}
	if offset < 0 || limit <= 0 {
		return nil, &validation.InvalidInputError{Field: "page", Value: fmt.Sprintf("offset=%d limit=%d", offset, limit), Reason: "offset must be >= 0 and limit > 0"}
	}

	if cards, total, ok := c.cache.Get(col, offset, limit); ok {
		return &types.CardPage{Column: col, Offset: offset, Cards: cards, Total: total}, nil
	}

	// On a miss, fetch a chunk sized to the larger of offset+limit and
	// the over-fetch floor so nearby pages hit the cache; a deep page
	// may need more rows than the default board load carries.
	fetch := c.cache.FetchSize(offset, limit)
	if fetch < c.opts.MaxIssues {
		fetch = c.opts.MaxIssues
	}
	if _, err := c.loadBoard(ctx, fetch); err != nil {
		return nil, err
	}
	cards, total, ok := c.cache.Page(col, offset, limit)
	if !ok {
		// Shouldn't happen right after a successful load; treat as an
		// empty page rather than failing the UI.
		return &types.CardPage{Column: col, Offset: offset, Cards: []*types.BoardCard{}, Total: -1}, nil
	}
	return &types.CardPage{Column: col, Offset: offset, Cards: cards, Total: total}, nil
}

// GetColumnCount returns the column size. When the loaded issue list
// was truncated at the max-issues cap the count is a lower bound.
func (c *CLIClient) GetColumnCount(ctx context.Context, col types.Column) (int, error) {
	if !col.IsValid() {
		return 0, &validation.InvalidInputError{Field: "column", Value: string(col), Reason: "unknown column"}
	}
	if n := c.cache.Len(col); n >= 0 {
		return n, nil
	}
	cols, err := c.LoadBoard(ctx)
	if err != nil {
		return 0, err
	}
	return len(cols[col]), nil
}

// GetIssueDetail returns one card with relationship collections. A
// cached card is served as-is; otherwise the board is loaded fresh,
// since reverse edges (parent, blocked-by) only exist after full
// assembly.
func (c *CLIClient) GetIssueDetail(ctx context.Context, id string) (*types.BoardCard, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	if card, ok := c.cache.Find(id); ok {
		return card, nil
	}
	cols, err := c.LoadBoard(ctx)
	if err != nil {
		return nil, err
	}
	for _, cards := range cols {
		for _, card := range cards {
			if card.ID == id {
				return card, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, id)
}

// loadCards is the batched read at the heart of every board load. The
// circuit breaker gates the whole attempt before any process is
// spawned; its outcome is scored once per attempt with partial-batch
// forgiveness.
func (c *CLIClient) loadCards(ctx context.Context, limit int) ([]*types.BoardCard, bool, error) {
	if err := c.brk.Allow(); err != nil {
		return nil, false, err
	}

	issues, err := c.listIssues(ctx, limit)
	if err != nil {
		c.brk.RecordFailure()
		return nil, false, err
	}
	truncated := len(issues) >= limit

	enriched := c.enrich(ctx, issues)
	return graph.Assemble(enriched), truncated, nil
}

func (c *CLIClient) listIssues(ctx context.Context, limit int) ([]*types.Issue, error) {
	raw, err := c.run(ctx, argvList(limit))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []*types.Issue{}, nil
	}
	var issues []*types.Issue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, &MalformedResponseError{Verb: "list", Detail: err.Error()}
	}
	for _, iss := range issues {
		iss.SetDefaults()
	}
	return issues, nil
}

// enrich resolves relationship detail for every listed issue via
// batched bd show calls. A failed sub-batch falls back to individual
// per-ID calls issued concurrently, trading one large risky call for
// many small parallel ones; IDs that still fail keep their unenriched
// list record. The breaker is scored once for the whole attempt:
// all sub-batches failed = failure, all succeeded = success, mixed =
// partial.
func (c *CLIClient) enrich(ctx context.Context, issues []*types.Issue) []*types.Issue {
	if len(issues) == 0 {
		c.brk.RecordSuccess()
		return issues
	}
	ids := make([]string, len(issues))
	for i, iss := range issues {
		ids[i] = iss.ID
	}

	detail := make(map[string]*types.Issue, len(ids))
	var okBatches, failedBatches int
	for start := 0; start < len(ids); start += ShowBatchSize {
		end := start + ShowBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		got, err := c.showIssues(ctx, batch)
		if err != nil {
			failedBatches++
			debug.Warnf("board: batch show of %d issues failed, retrying individually: %v", len(batch), err)
			got = c.showIndividually(ctx, batch)
		} else {
			okBatches++
		}
		for _, iss := range got {
			detail[iss.ID] = iss
		}
	}

	switch {
	case failedBatches == 0:
		c.brk.RecordSuccess()
	case okBatches == 0:
		c.brk.RecordFailure()
	default:
		c.brk.RecordPartial()
	}

	out := make([]*types.Issue, len(issues))
	for i, iss := range issues {
		if d, ok := detail[iss.ID]; ok {
			out[i] = d
		} else {
			out[i] = iss
		}
	}
	return out
}

func (c *CLIClient) showIssues(ctx context.Context, ids []string) ([]*types.Issue, error) {
	argv, err := argvShow(ids...)
	if err != nil {
		return nil, err
	}
	raw, err := c.run(ctx, argv)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &MalformedResponseError{Verb: "show", Detail: "expected JSON payload, got none"}
	}
	return decodeIssues(raw)
}

// showIndividually is the fallback path after a batch failure: all
// per-ID calls run concurrently and their joint completion is
// awaited, avoiding an O(n) sequential-latency penalty.
func (c *CLIClient) showIndividually(ctx context.Context, ids []string) []*types.Issue {
	var mu sync.Mutex
	var out []*types.Issue

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			got, err := c.showIssues(gctx, []string{id})
			if err != nil {
				debug.Logf("board: individual show %s failed: %v", id, err)
				return nil // unenriched fallback, not fatal
			}
			mu.Lock()
			out = append(out, got...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// decodeIssues accepts either an array or a single issue object; bd
// show emits an object when given one ID.
func decodeIssues(raw json.RawMessage) ([]*types.Issue, error) {
	var issues []*types.Issue
	if err := json.Unmarshal(raw, &issues); err == nil {
		for _, iss := range issues {
			iss.SetDefaults()
		}
		return issues, nil
	}
	var one types.Issue
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, &MalformedResponseError{Verb: "show", Detail: err.Error()}
	}
	one.SetDefaults()
	return []*types.Issue{&one}, nil
}

// --- writes ---

// mutate runs a mutation argv and invalidates the cache only after
// the call's success is confirmed, never before.
func (c *CLIClient) mutate(ctx context.Context, argv []string) (json.RawMessage, error) {
	if c.opts.ReadOnly {
		return nil, ErrReadOnly
	}
	raw, err := c.run(ctx, argv)
	if err != nil {
		return nil, err
	}
	c.cache.InvalidateAll()
	return raw, nil
}

func (c *CLIClient) CreateIssue(ctx context.Context, fields CreateFields) (*types.Issue, error) {
	argv, err := argvCreate(fields)
	if err != nil {
		return nil, err
	}
	raw, err := c.mutate(ctx, argv)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &MalformedResponseError{Verb: "create", Detail: "expected created issue JSON, got none"}
	}
	var iss types.Issue
	if err := json.Unmarshal(raw, &iss); err != nil {
		return nil, &MalformedResponseError{Verb: "create", Detail: err.Error()}
	}
	iss.SetDefaults()
	return &iss, nil
}

func (c *CLIClient) UpdateIssue(ctx context.Context, id string, fields UpdateFields) error {
	argv, err := argvUpdate(id, fields)
	if err != nil {
		return err
	}
	_, err = c.mutate(ctx, argv)
	return err
}

// SetStatus is idempotent: closing an already-closed issue succeeds
// and leaves closed_at untouched (bd owns that invariant).
func (c *CLIClient) SetStatus(ctx context.Context, id string, status types.Status) error {
	if !status.IsValid() {
		return &validation.InvalidInputError{Field: "status", Value: string(status), Reason: "unknown status"}
	}
	return c.UpdateIssue(ctx, id, UpdateFields{Status: &status})
}

func (c *CLIClient) AddLabel(ctx context.Context, id, label string) error {
	argv, err := argvLabel("add", id, label)
	if err != nil {
		return err
	}
	_, err = c.mutate(ctx, argv)
	return err
}

func (c *CLIClient) RemoveLabel(ctx context.Context, id, label string) error {
	argv, err := argvLabel("remove", id, label)
	if err != nil {
		return err
	}
	_, err = c.mutate(ctx, argv)
	return err
}

func (c *CLIClient) AddDependency(ctx context.Context, id, otherID string, depType types.DependencyType) error {
	argv, err := argvDepAdd(id, otherID, depType)
	if err != nil {
		return err
	}
	_, err = c.mutate(ctx, argv)
	return err
}

func (c *CLIClient) RemoveDependency(ctx context.Context, id, otherID string) error {
	argv, err := argvDepRemove(id, otherID)
	if err != nil {
		return err
	}
	_, err = c.mutate(ctx, argv)
	return err
}

func (c *CLIClient) AddComment(ctx context.Context, id, text, author string) error {
	argv, err := argvCommentAdd(id, text, author)
	if err != nil {
		return err
	}
	_, err = c.mutate(ctx, argv)
	return err
}

// --- auxiliary reads ---

func (c *CLIClient) Comments(ctx context.Context, id string) ([]*types.Comment, error) {
	argv, err := argvComments(id)
	if err != nil {
		return nil, err
	}
	raw, err := c.run(ctx, argv)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []*types.Comment{}, nil
	}
	var comments []*types.Comment
	if err := json.Unmarshal(raw, &comments); err != nil {
		return nil, &MalformedResponseError{Verb: "comments", Detail: err.Error()}
	}
	return comments, nil
}

func (c *CLIClient) Stats(ctx context.Context) (*types.Stats, error) {
	raw, err := c.run(ctx, argvStats())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &MalformedResponseError{Verb: "stats", Detail: "expected JSON payload, got none"}
	}
	var stats types.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, &MalformedResponseError{Verb: "stats", Detail: err.Error()}
	}
	return &stats, nil
}

func (c *CLIClient) Health(ctx context.Context) (*types.Health, error) {
	raw, err := c.run(ctx, argvHealth())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		// bd prints human text for a healthy daemon unless asked for
		// JSON; a zero exit is itself the health signal.
		return &types.Health{Status: "ok"}, nil
	}
	var h types.Health
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, &MalformedResponseError{Verb: "health", Detail: err.Error()}
	}
	return &h, nil
}

// --- lifecycle ---

// SetWorkspace repoints the client. Failure history and cached pages
// belong to the old target, so both the breaker and cache reset.
func (c *CLIClient) SetWorkspace(dir string) {
	c.mu.Lock()
	c.opts.Workspace = dir
	c.runner = c.newRunner(dir)
	c.mu.Unlock()

	c.brk.Reset()
	c.cache.InvalidateAll()
	debug.Logf("board: workspace changed to %s, breaker and cache reset", dir)
}

func (c *CLIClient) BreakerSnapshot() breaker.Snapshot {
	return c.brk.Snapshot()
}

func (c *CLIClient) ResetBreaker() {
	c.brk.Reset()
}

// recoveryProbe is handed to the breaker as the automatic recovery
// attempt: a minimal list call whose outcome decides the half-open
// transition.
func (c *CLIClient) recoveryProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout+time.Second)
	defer cancel()

	_, err := c.run(ctx, argvList(1))
	if err != nil {
		debug.Logf("board: recovery probe failed: %v", err)
		c.brk.RecordFailure()
		return
	}
	debug.Logf("board: recovery probe succeeded")
	c.brk.RecordSuccess()
}

// sortCards orders a column by priority (P0 first), then most
// recently updated.
func sortCards(cards []*types.BoardCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Priority != cards[j].Priority {
			return cards[i].Priority < cards[j].Priority
		}
		return cards[i].UpdatedAt.After(cards[j].UpdatedAt)
	})
}
