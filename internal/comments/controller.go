package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"devstudio/internal/apperr"
	"devstudio/internal/models"
	"devstudio/internal/notify"
	"devstudio/internal/pagination"

	"go.uber.org/zap"
)

var (
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled by user")
	// ErrSubmitPending is returned while another create is in flight.
	ErrSubmitPending = apperr.Validation("post comment", "A comment is already being submitted")
	// ErrClosed is returned for operations on a torn-down controller.
	ErrClosed = errors.New("comment thread closed")
)

// API is the slice of the remote API the thread needs.
type API interface {
	ListComments(ctx context.Context, postID string, page, size int) (pagination.Page[models.Comment], error)
	CreateComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Step names the observable transitions of a thread.
type Step int

const (
	StepLoaded Step = iota + 1
	StepPrepended
	StepReplyReloaded
	StepExpanded
	StepCollapsed
	StepDeleted
)

func (s Step) String() string {
	switch s {
	case StepLoaded:
		return "loaded"
	case StepPrepended:
		return "prepended"
	case StepReplyReloaded:
		return "reply-reloaded"
	case StepExpanded:
		return "expanded"
	case StepCollapsed:
		return "collapsed"
	case StepDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Transition is emitted after a state change has been applied.
type Transition struct {
	Step      Step
	CommentID string
	Page      int
}

type Options struct {
	PageSize     int
	Confirmer    Confirmer
	Notifier     notify.Notifier
	Logger       *zap.Logger
	OnTransition func(Transition)
}

// Thread owns the comment tree of one post and keeps it in step with the
// server.
//
// State is guarded by mu; network calls run without the lock. Loads for
// different pages may overlap, and identity de-duplication on append keeps
// the tree free of duplicates. A page-0 reload replays every mutation applied
// after its request went out, so a slow reload never loses later pages.
type Thread struct {
	postID       string
	api          API
	pageSize     int
	confirmer    Confirmer
	notifier     notify.Notifier
	logger       *zap.Logger
	onTransition func(Transition)

	life   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	comments   []models.Comment
	idx        index
	expanded   map[string]bool
	hasMore    bool
	loadedPage int // highest page applied, -1 before the first load
	gen        uint64
	zeroGen    uint64 // issue generation of the page 0 currently shown
	reloads    int    // page-0 requests outstanding
	journal    []op
	inFlight   int
	submitting bool
	draft      string
	closed     bool
}

func NewThread(postID string, api API, opts Options) *Thread {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	life, cancel := context.WithCancel(context.Background())
	return &Thread{
		postID:       postID,
		api:          api,
		pageSize:     opts.PageSize,
		confirmer:    opts.Confirmer,
		notifier:     opts.Notifier,
		logger:       opts.Logger.With(zap.String("post_id", postID)),
		onTransition: opts.OnTransition,
		life:         life,
		cancel:       cancel,
		idx:          index{},
		expanded:     map[string]bool{},
		hasMore:      true,
		loadedPage:   -1,
	}
}

// LoadPage fetches one page of top-level comments. Page 0 replaces the tree
// unless a later page landed while it was in flight; later pages append only
// comments not already present.
func (t *Thread) LoadPage(ctx context.Context, page int) error {
	if page < 0 {
		return apperr.Validation("load comments", fmt.Sprintf("invalid page %d", page))
	}
	ctx, done, err := t.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	t.mu.Lock()
	issued := t.gen
	if page == 0 {
		t.reloads++
	}
	t.mu.Unlock()
	if page == 0 {
		defer t.endReload()
	}

	result, err := t.api.ListComments(ctx, t.postID, page, t.pageSize)
	if err != nil {
		return t.fail("load comments", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if page == 0 {
		if issued < t.zeroGen {
			t.mu.Unlock()
			t.logger.Debug("stale first page dropped")
			return nil
		}
		t.applyFirstPageLocked(result, issued)
	} else {
		items := cloneTree(result.Items)
		t.comments = pagination.MergeUnique(t.comments, items, models.CommentKey)
		t.notePageLocked(page, result.Last)
		t.recordLocked(op{kind: opPage, page: page, last: result.Last, items: items})
	}
	t.idx = buildIndex(t.comments)
	t.mu.Unlock()

	t.logger.Debug("comments page applied", zap.Int("page", page), zap.Int("items", len(result.Items)), zap.Bool("last", result.Last))
	t.emit(Transition{Step: StepLoaded, Page: page})
	return nil
}

type opKind int

const (
	opPage opKind = iota
	opPrepend
	opDelete
)

// op is a tree mutation remembered for page-0 reloads. Later pages are kept
// until the next page 0 is applied; prepends and deletes only while a reload
// is outstanding.
type op struct {
	gen   uint64
	kind  opKind
	page  int
	last  bool
	items []models.Comment
	id    string
}

func (t *Thread) recordLocked(o op) {
	t.gen++
	if o.kind != opPage && t.reloads == 0 {
		return
	}
	o.gen = t.gen
	t.journal = append(t.journal, o)
}

// applyFirstPageLocked replaces the tree with page 0. When a later page
// landed while the request was out, every later page loaded so far is merged
// back so the list has no gaps, and the prepends and deletes made meanwhile
// are replayed.
func (t *Thread) applyFirstPageLocked(result pagination.Page[models.Comment], issued uint64) {
	overlap := false
	for _, o := range t.journal {
		if o.kind == opPage && o.gen > issued {
			overlap = true
			break
		}
	}

	t.comments = cloneTree(result.Items)
	t.loadedPage = 0
	t.hasMore = !result.Last

	kept := t.journal[:0]
	for _, o := range t.journal {
		switch {
		case o.kind == opPage && overlap:
			t.comments = pagination.MergeUnique(t.comments, cloneTree(o.items), models.CommentKey)
			t.notePageLocked(o.page, o.last)
		case o.gen <= issued:
			continue
		case o.kind == opPrepend:
			t.comments = pagination.MergeUnique(cloneTree(o.items), t.comments, models.CommentKey)
		case o.kind == opDelete:
			t.comments, _ = RemoveSubtree(t.comments, o.id)
		}
		kept = append(kept, o)
	}
	t.journal = kept
	t.zeroGen = issued
	t.gen++
}

// notePageLocked keeps paging state in line with the highest page applied.
func (t *Thread) notePageLocked(page int, last bool) {
	if page >= t.loadedPage {
		t.loadedPage = page
		t.hasMore = !last
	}
}

func (t *Thread) endReload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reloads--
	if t.reloads > 0 {
		return
	}
	pages := t.journal[:0]
	for _, o := range t.journal {
		if o.kind == opPage {
			pages = append(pages, o)
		}
	}
	t.journal = pages
}

// LoadMore fetches the page after the highest one loaded so far.
func (t *Thread) LoadMore(ctx context.Context) error {
	t.mu.Lock()
	next := t.loadedPage + 1
	hasMore := t.hasMore
	t.mu.Unlock()

	if next > 0 && !hasMore {
		return nil
	}
	return t.LoadPage(ctx, next)
}

// PostTopLevelComment creates a comment on the post and prepends the server's
// copy to the tree. The draft survives a failed attempt.
func (t *Thread) PostTopLevelComment(ctx context.Context, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, t.reject(apperr.Validation("post comment", "Comment cannot be empty"))
	}
	if err := t.startSubmit(content); err != nil {
		return nil, err
	}
	defer t.endSubmit()

	ctx, done, err := t.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	created, err := t.api.CreateComment(ctx, t.postID, content, "")
	if err != nil {
		return nil, t.fail("post comment", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	node := cloneTree([]models.Comment{*created})
	t.comments = append(node, t.comments...)
	t.idx = buildIndex(t.comments)
	t.recordLocked(op{kind: opPrepend, items: node})
	t.draft = ""
	t.mu.Unlock()

	t.emit(Transition{Step: StepPrepended, CommentID: created.ID})
	return created, nil
}

// PostReply creates a reply under parentID. The tree is not spliced locally:
// page 0 is reloaded from the server and then the parent's thread is forced
// open. Both steps emit their own transition.
func (t *Thread) PostReply(ctx context.Context, parentID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, t.reject(apperr.Validation("post reply", "Reply cannot be empty"))
	}
	if parentID == "" {
		return nil, t.reject(apperr.Validation("post reply", "Reply needs a parent comment"))
	}
	if err := t.startSubmit(content); err != nil {
		return nil, err
	}
	defer t.endSubmit()

	created, err := t.createReply(ctx, parentID, content)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.draft = ""
	t.mu.Unlock()

	// step 1: re-derive the tree from the server
	reloadErr := t.LoadPage(ctx, 0)
	if reloadErr == nil {
		t.emit(Transition{Step: StepReplyReloaded, CommentID: created.ID, Page: 0})
	}

	// step 2: the reply exists regardless of the reload outcome
	t.expand(parentID)

	if reloadErr != nil {
		return created, fmt.Errorf("reply posted but refresh failed: %w", reloadErr)
	}
	return created, nil
}

func (t *Thread) createReply(ctx context.Context, parentID, content string) (*models.Comment, error) {
	ctx, done, err := t.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	created, err := t.api.CreateComment(ctx, t.postID, content, parentID)
	if err != nil {
		return nil, t.fail("post reply", err)
	}
	return created, nil
}

// DeleteComment asks for confirmation, deletes the comment on the server and
// removes it together with its whole subtree.
func (t *Thread) DeleteComment(ctx context.Context, commentID string) error {
	t.mu.Lock()
	known := t.idx.has(commentID)
	t.mu.Unlock()
	if !known {
		return t.reject(apperr.NotFound("delete comment", "comment "+commentID+" is not in this thread"))
	}

	if t.confirmer == nil {
		return errors.New("delete comment: no confirmation available")
	}
	ok, err := t.confirmer.Confirm(ctx, "Are you sure you want to delete this comment?")
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if !ok {
		return ErrCancelled
	}

	ctx, done, err := t.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := t.api.DeleteComment(ctx, commentID); err != nil {
		return t.fail("delete comment", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	removedIDs := SubtreeIDs(t.comments, commentID)
	t.comments, _ = RemoveSubtree(t.comments, commentID)
	t.idx = buildIndex(t.comments)
	for i := range t.journal {
		if t.journal[i].kind == opPage {
			t.journal[i].items, _ = RemoveSubtree(t.journal[i].items, commentID)
		}
	}
	t.recordLocked(op{kind: opDelete, id: commentID})
	for _, id := range removedIDs {
		delete(t.expanded, id)
	}
	t.mu.Unlock()

	t.emit(Transition{Step: StepDeleted, CommentID: commentID})
	return nil
}

// Toggle flips a thread between collapsed and expanded.
func (t *Thread) Toggle(commentID string) bool {
	t.mu.Lock()
	open := !t.expanded[commentID]
	if open {
		t.expanded[commentID] = true
	} else {
		delete(t.expanded, commentID)
	}
	t.mu.Unlock()

	step := StepCollapsed
	if open {
		step = StepExpanded
	}
	t.emit(Transition{Step: step, CommentID: commentID})
	return open
}

// expand forces a thread open; only a successful reply does this.
func (t *Thread) expand(commentID string) {
	t.mu.Lock()
	t.expanded[commentID] = true
	t.mu.Unlock()
	t.emit(Transition{Step: StepExpanded, CommentID: commentID})
}

func (t *Thread) Expanded(commentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expanded[commentID]
}

// Comments returns a copy of the current tree.
func (t *Thread) Comments() []models.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneTree(t.comments)
}

func (t *Thread) Has(commentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx.has(commentID)
}

// ParentOf returns the parent id of a comment in the tree.
func (t *Thread) ParentOf(commentID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.idx[commentID]
	return p, ok
}

func (t *Thread) HasMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasMore
}

func (t *Thread) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight > 0
}

func (t *Thread) Submitting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitting
}

// Draft is the text of the last submission that has not succeeded yet.
func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// Close tears the thread down: in-flight requests are cancelled and their
// late responses are ignored.
func (t *Thread) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()
}

// begin registers an in-flight request and ties ctx to the thread lifetime.
func (t *Thread) begin(ctx context.Context) (context.Context, func(), error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, nil, ErrClosed
	}
	t.inFlight++
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(t.life, cancel)
	return ctx, func() {
		stop()
		cancel()
		t.mu.Lock()
		t.inFlight--
		t.mu.Unlock()
	}, nil
}

func (t *Thread) startSubmit(content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.submitting {
		return ErrSubmitPending
	}
	t.submitting = true
	t.draft = content
	return nil
}

func (t *Thread) endSubmit() {
	t.mu.Lock()
	t.submitting = false
	t.mu.Unlock()
}

// fail reports a remote failure unless the thread was torn down meanwhile.
func (t *Thread) fail(op string, err error) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}
	t.logger.Warn(op+" failed", zap.Error(err))
	t.notifier.Notify(notify.FromError(err))
	return err
}

func (t *Thread) reject(err error) error {
	t.notifier.Notify(notify.FromError(err))
	return err
}

func (t *Thread) emit(tr Transition) {
	if t.onTransition != nil {
		t.onTransition(tr)
	}
}
