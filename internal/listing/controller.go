package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"devstudio/internal/apperr"
	"devstudio/internal/notify"
	"devstudio/internal/pagination"

	"go.uber.org/zap"
)

// ErrClosed is returned for operations on a torn-down controller.
var ErrClosed = errors.New("listing closed")

type Mode int

const (
	// ModeNumbered shows exactly one page; a page change replaces it.
	ModeNumbered Mode = iota
	// ModeAccumulate appends pages behind a "load more" control.
	ModeAccumulate
)

func (m Mode) String() string {
	if m == ModeAccumulate {
		return "accumulate"
	}
	return "numbered"
}

// Fetcher loads one page of results for term.
type Fetcher[T any] func(ctx context.Context, term string, page, size int) (pagination.Page[T], error)

type Options[T any] struct {
	Mode     Mode
	PageSize int
	// LocalPaging means the fetcher returns the whole collection at once and
	// pages are cut client-side.
	LocalPaging bool
	Filters     map[string]Filter[T]
	Debounce    time.Duration
	AfterFunc   AfterFunc
	Notifier    notify.Notifier
	Logger      *zap.Logger
	// OnSearch runs after a debounced search has completed.
	OnSearch    func(term string, err error)
}

// Controller drives a remote list with debounced search, client-side filters
// and either numbered or accumulating pagination.
type Controller[T any] struct {
	fetch     Fetcher[T]
	key       func(T) string
	mode      Mode
	pageSize  int
	local     bool
	filters   map[string]Filter[T]
	debouncer *Debouncer
	notifier  notify.Notifier
	logger    *zap.Logger
	onSearch  func(term string, err error)

	life   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	items       []T
	term        string // term of the displayed results
	pendingTerm string
	active      map[string]string
	pageIndex   int
	fetched     int // highest server page held, -1 before the first load
	totalPages  int
	last        bool
	inFlight    int
	seq         uint64 // latest replacing fetch
	closed      bool
}

func New[T any](fetch Fetcher[T], key func(T) string, opts Options[T]) *Controller[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = 9
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	life, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		fetch:     fetch,
		key:       key,
		mode:      opts.Mode,
		pageSize:  opts.PageSize,
		local:     opts.LocalPaging,
		filters:   opts.Filters,
		debouncer: NewDebouncer(opts.Debounce, opts.AfterFunc),
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		onSearch:  opts.OnSearch,
		life:      life,
		cancel:    cancel,
		active:    map[string]string{},
		fetched:   -1,
	}
}

// Refresh loads page 0 for the current term, replacing the result set.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	term := c.pendingTerm
	c.mu.Unlock()
	return c.load(ctx, term, 0, true)
}

// SetSearchTerm records term immediately and schedules the search once typing
// has paused. Every new keystroke supersedes the pending search.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pendingTerm = term
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		err := c.search(term)
		if c.onSearch != nil && !errors.Is(err, ErrClosed) {
			c.onSearch(term, err)
		}
	})
}

// Search runs term right away, dropping any pending debounced search.
func (c *Controller[T]) Search(ctx context.Context, term string) error {
	c.debouncer.Stop()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pendingTerm = term
	c.pageIndex = 0
	c.mu.Unlock()
	return c.load(ctx, term, 0, true)
}

// search starts a new result set for term.
func (c *Controller[T]) search(term string) error {
	c.mu.Lock()
	c.pageIndex = 0
	c.mu.Unlock()
	return c.load(c.life, term, 0, true)
}

// PendingTerm is the term as typed, possibly not searched yet.
func (c *Controller[T]) PendingTerm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingTerm
}

// Term is the term the displayed results belong to.
func (c *Controller[T]) Term() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.term
}

// SetPage shows page index. Indexes outside the known range are rejected
// without a request.
func (c *Controller[T]) SetPage(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	total := c.totalPagesLocked()
	if !pagination.InRange(index, total) {
		c.mu.Unlock()
		return c.reject(apperr.Validation("set page", fmt.Sprintf("Page %d is out of range", index+1)))
	}
	if c.local {
		c.pageIndex = index
		c.mu.Unlock()
		return nil
	}
	term := c.term
	c.mu.Unlock()

	return c.load(ctx, term, index, true)
}

// SetFilter applies a client-side filter over the fetched items and goes back
// to the first page. Items on pages that have not been fetched are not
// considered, and accumulated pages are never refetched. A numbered listing
// showing a later server page reloads page 0 so the index matches what is
// displayed.
func (c *Controller[T]) SetFilter(ctx context.Context, name, value string) error {
	if _, ok := c.filters[name]; !ok {
		return c.reject(apperr.Validation("set filter", fmt.Sprintf("Unknown filter %q", name)))
	}
	if name == FilterPrice && !Inactive(value) {
		if _, ok := ParseBracket(value); !ok {
			return c.reject(apperr.Validation("set filter", fmt.Sprintf("Unknown price range %q", value)))
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if Inactive(value) {
		delete(c.active, name)
	} else {
		c.active[name] = value
	}
	refetch := c.mode == ModeNumbered && !c.local && c.pageIndex > 0
	c.pageIndex = 0
	term := c.term
	c.mu.Unlock()

	if refetch {
		return c.load(ctx, term, 0, true)
	}
	return nil
}

// Filters returns the active filters.
func (c *Controller[T]) Filters() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.active))
	for k, v := range c.active {
		out[k] = v
	}
	return out
}

// LoadMore appends the next page, skipping items already held.
func (c *Controller[T]) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.local {
		if c.pageIndex+1 < c.totalPagesLocked() {
			c.pageIndex++
		}
		c.mu.Unlock()
		return nil
	}
	if c.fetched >= 0 && c.last {
		c.mu.Unlock()
		return nil
	}
	next := c.fetched + 1
	term := c.term
	c.mu.Unlock()

	return c.load(ctx, term, next, next == 0)
}

// HasMore reports whether LoadMore can reveal further items.
func (c *Controller[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local {
		return c.pageIndex+1 < c.totalPagesLocked()
	}
	return c.fetched < 0 || !c.last
}

func (c *Controller[T]) load(ctx context.Context, term string, page int, replace bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.inFlight++
	var seq uint64
	if replace {
		c.seq++
		seq = c.seq
	}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	defer func() {
		stop()
		cancel()
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	size := c.pageSize
	result, err := c.fetch(ctx, term, page, size)
	if err != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return ErrClosed
		}
		c.logger.Warn("listing fetch failed",
			zap.String("term", term),
			zap.Int("page", page),
			zap.Error(err))
		c.notifier.Notify(notify.FromError(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if (replace && seq != c.seq) || (!replace && term != c.term) {
		c.logger.Debug("dropping superseded page", zap.String("term", term), zap.Int("page", page))
		return nil
	}

	if replace || c.mode == ModeNumbered {
		c.items = pagination.Dedup(result.Items, c.key)
	} else {
		c.items = pagination.MergeUnique(c.items, result.Items, c.key)
	}
	c.term = term
	c.last = !result.HasMore()
	c.totalPages = result.TotalPages
	if c.local {
		c.pageIndex = 0
		c.fetched = 0
		c.last = true
	} else if replace || c.mode == ModeNumbered {
		c.pageIndex = page
		c.fetched = page
	} else {
		c.fetched = max(c.fetched, page)
		c.pageIndex = c.fetched
	}

	c.logger.Debug("listing page applied",
		zap.String("term", term),
		zap.Int("page", page),
		zap.Int("items", len(result.Items)),
		zap.Stringer("mode", c.mode))
	return nil
}

// Items returns every fetched item, ignoring filters.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Visible returns what the user sees: fetched items narrowed by the active
// filters and, with client-side paging, cut to the current page (or to all
// pages up to it when accumulating).
func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	filtered := c.filteredLocked()
	if !c.local {
		return filtered
	}
	if c.mode == ModeAccumulate {
		end := min((c.pageIndex+1)*c.pageSize, len(filtered))
		return filtered[:end]
	}
	return pagination.Slice(filtered, c.pageIndex, c.pageSize)
}

func (c *Controller[T]) PageIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageIndex
}

// TotalPages is 0 while unknown.
func (c *Controller[T]) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPagesLocked()
}

func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// SearchPending reports whether a debounced search is waiting to fire.
func (c *Controller[T]) SearchPending() bool {
	return c.debouncer.Pending()
}

// Close stops the pending search and abandons in-flight requests.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.debouncer.Stop()
	c.cancel()
}

func (c *Controller[T]) totalPagesLocked() int {
	if c.local {
		if c.fetched < 0 {
			return 0
		}
		return max(pagination.PageCount(len(c.filteredLocked()), c.pageSize), 1)
	}
	return c.totalPages
}

func (c *Controller[T]) filteredLocked() []T {
	if len(c.active) == 0 {
		out := make([]T, len(c.items))
		copy(out, c.items)
		return out
	}
	names := make([]string, 0, len(c.active))
	for name := range c.active {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]T, 0, len(c.items))
next:
	for _, item := range c.items {
		for _, name := range names {
			if !c.filters[name](item, c.active[name]) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

func (c *Controller[T]) reject(err error) error {
	c.notifier.Notify(notify.FromError(err))
	return err
}
