package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"devstudio/internal/apperr"
	"devstudio/internal/models"
	"devstudio/internal/notify"
	"devstudio/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Term string
	Page int
	At   time.Duration
}

// fakeBlogs serves pages of blog posts from memory and records every call.
type fakeBlogs struct {
	mu    sync.Mutex
	pages map[string][][]models.BlogPost // term -> pages
	fail  map[int]error
	calls []call
	clock *fakeClock
}

func newFakeBlogs() *fakeBlogs {
	return &fakeBlogs{pages: map[string][][]models.BlogPost{}, fail: map[int]error{}}
}

func (f *fakeBlogs) fetch(_ context.Context, term string, page, size int) (pagination.Page[models.BlogPost], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := call{Term: term, Page: page}
	if f.clock != nil {
		c.At = f.clock.Now()
	}
	f.calls = append(f.calls, c)
	if err, ok := f.fail[page]; ok {
		return pagination.Page[models.BlogPost]{}, err
	}
	pages := f.pages[term]
	var items []models.BlogPost
	if page < len(pages) {
		items = pages[page]
	}
	return pagination.Page[models.BlogPost]{
		Items:      items,
		Index:      page,
		Size:       size,
		Last:       page+1 >= len(pages),
		TotalPages: len(pages),
	}, nil
}

func (f *fakeBlogs) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func post(id, category string) models.BlogPost {
	return models.BlogPost{ID: id, Title: "Post " + id, Category: category}
}

func postIDs(posts []models.BlogPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func newBlogListing(f *fakeBlogs, mode Mode, clock *fakeClock) (*Controller[models.BlogPost], *notify.Recorder) {
	rec := &notify.Recorder{}
	opts := Options[models.BlogPost]{
		Mode:     mode,
		PageSize: 2,
		Filters:  BlogFilters(),
		Notifier: rec,
	}
	if clock != nil {
		opts.AfterFunc = clock.AfterFunc
		f.clock = clock
	}
	return New(f.fetch, models.BlogPostKey, opts), rec
}

func TestSearchIsDebounced(t *testing.T) {
	clock := &fakeClock{}
	f := newFakeBlogs()
	f.pages["design"] = [][]models.BlogPost{{post("d1", "Design")}}
	c, _ := newBlogListing(f, ModeNumbered, clock)

	for _, k := range []struct {
		at   time.Duration
		term string
	}{{0, "d"}, {100, "de"}, {200, "des"}, {480, "design"}} {
		clock.Set(k.at * time.Millisecond)
		c.SetSearchTerm(k.term)
		assert.Equal(t, k.term, c.PendingTerm())
	}
	assert.True(t, c.SearchPending())

	clock.Set(979 * time.Millisecond)
	assert.Empty(t, f.Calls())

	clock.Set(3 * time.Second)
	assert.Equal(t, []call{{Term: "design", Page: 0, At: 980 * time.Millisecond}}, f.Calls())
	assert.Equal(t, []string{"d1"}, postIDs(c.Visible()))
	assert.Equal(t, "design", c.Term())
	assert.False(t, c.SearchPending())
}

func TestSearchResetsToFirstPage(t *testing.T) {
	clock := &fakeClock{}
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{{post("1", "a")}, {post("2", "a")}, {post("3", "a")}}
	f.pages["go"] = [][]models.BlogPost{{post("g1", "a")}, {post("g2", "a")}}
	c, _ := newBlogListing(f, ModeNumbered, clock)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.SetPage(ctx, 2))
	assert.Equal(t, 2, c.PageIndex())

	c.SetSearchTerm("go")
	clock.Advance(DefaultDebounce)

	assert.Equal(t, 0, c.PageIndex())
	assert.Equal(t, []string{"g1"}, postIDs(c.Visible()))
	assert.Equal(t, 2, c.TotalPages())
}

func TestNumberedModeReplaces(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{
		{post("1", "a"), post("2", "a")},
		{post("3", "a"), post("4", "a")},
	}
	c, _ := newBlogListing(f, ModeNumbered, nil)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, []string{"1", "2"}, postIDs(c.Visible()))
	assert.Equal(t, 2, c.TotalPages())

	require.NoError(t, c.SetPage(ctx, 1))
	assert.Equal(t, []string{"3", "4"}, postIDs(c.Visible()))
	assert.Equal(t, 1, c.PageIndex())
}

func TestSetPageOutOfRange(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{{post("1", "a")}, {post("2", "a")}}
	c, rec := newBlogListing(f, ModeNumbered, nil)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	for _, index := range []int{-1, 2, 10} {
		err := c.SetPage(ctx, index)
		assert.ErrorIs(t, err, apperr.ErrValidation, "page %d", index)
	}
	assert.Len(t, f.Calls(), 1)
	assert.Equal(t, 3, rec.Len())
	assert.Equal(t, []string{"1"}, postIDs(c.Visible()))
}

func TestLoadMoreNeverDuplicates(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{
		{post("X", "a"), post("Y", "a")},
		{post("Y", "a"), post("Z", "a")},
		{post("Z", "a"), post("X", "a"), post("W", "a")},
	}
	c, _ := newBlogListing(f, ModeAccumulate, nil)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, c.LoadMore(ctx))
		seen := map[string]bool{}
		for _, id := range postIDs(c.Items()) {
			require.False(t, seen[id], "duplicate %s", id)
			seen[id] = true
		}
	}

	assert.Equal(t, []string{"X", "Y", "Z", "W"}, postIDs(c.Items()))
	assert.False(t, c.HasMore())
	assert.Len(t, f.Calls(), 3)
}

func TestLoadMoreSamePageTwice(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{
		{post("X", "a"), post("Y", "a")},
		{post("Y", "a"), post("Z", "a")},
	}
	c, _ := newBlogListing(f, ModeAccumulate, nil)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.LoadMore(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"X", "Y", "Z"}, postIDs(c.Items()))
}

func TestFilterResetsPageIndex(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{
		{post("1", "Design"), post("2", "Dev")},
		{post("3", "Design"), post("4", "Dev")},
		{post("5", "Design"), post("6", "Dev")},
	}
	c, _ := newBlogListing(f, ModeNumbered, nil)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	for _, value := range []string{"Design", "Dev", "all", "Design", ""} {
		require.NoError(t, c.SetPage(ctx, 2))
		require.NoError(t, c.SetFilter(ctx, FilterCategory, value))
		assert.Equal(t, 0, c.PageIndex(), "filter %q", value)
	}

	// back on page 0 with the filter applied to what was fetched
	require.NoError(t, c.SetFilter(ctx, FilterCategory, "dev"))
	assert.Equal(t, []string{"2"}, postIDs(c.Visible()))
	assert.Equal(t, []string{"1", "2"}, postIDs(c.Items()))
	assert.Equal(t, map[string]string{FilterCategory: "dev"}, c.Filters())
}

func TestFilterKeepsAccumulatedPages(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{
		{post("1", "Design"), post("2", "Dev")},
		{post("3", "Design"), post("4", "Dev")},
		{post("5", "Design")},
	}
	c, _ := newBlogListing(f, ModeAccumulate, nil)
	ctx := context.Background()
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))
	require.Len(t, f.Calls(), 2)

	require.NoError(t, c.SetFilter(ctx, FilterCategory, "Design"))
	assert.Equal(t, 0, c.PageIndex())
	assert.Equal(t, []string{"1", "2", "3", "4"}, postIDs(c.Items()))
	assert.Equal(t, []string{"1", "3"}, postIDs(c.Visible()))
	assert.Len(t, f.Calls(), 2)

	// load more continues after the last fetched page
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []string{"1", "3", "5"}, postIDs(c.Visible()))
	assert.Equal(t, 2, f.Calls()[2].Page)
}

func TestUnknownFilterRejected(t *testing.T) {
	c, rec := newBlogListing(newFakeBlogs(), ModeNumbered, nil)

	err := c.SetFilter(context.Background(), FilterPrice, "low")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, rec.Len())
}

func TestFailedFetchKeepsResults(t *testing.T) {
	f := newFakeBlogs()
	f.pages[""] = [][]models.BlogPost{{post("1", "a")}, {post("2", "a")}}
	f.fail[1] = apperr.Network("list blogs", errors.New("connection refused"))
	c, rec := newBlogListing(f, ModeNumbered, nil)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	err := c.SetPage(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Equal(t, []string{"1"}, postIDs(c.Visible()))
	assert.Equal(t, 0, c.PageIndex())
	assert.False(t, c.Loading())
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, notify.LevelError, rec.All()[0].Level)
}

func TestSupersededPageIsDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan int, 2)
	fetch := func(ctx context.Context, term string, page, size int) (pagination.Page[models.BlogPost], error) {
		started <- page
		if page == 1 {
			<-release
		}
		return pagination.Page[models.BlogPost]{
			Items:      []models.BlogPost{post(fmt.Sprintf("p%d", page), "a")},
			Index:      page,
			TotalPages: 3,
		}, nil
	}
	c := New(fetch, models.BlogPostKey, Options[models.BlogPost]{PageSize: 1})
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	<-started

	slow := make(chan error, 1)
	go func() { slow <- c.SetPage(ctx, 1) }()
	<-started

	require.NoError(t, c.SetPage(ctx, 2))
	<-started
	close(release)
	require.NoError(t, <-slow)

	assert.Equal(t, []string{"p2"}, postIDs(c.Visible()))
	assert.Equal(t, 2, c.PageIndex())
}

func TestCloseStopsPendingSearch(t *testing.T) {
	clock := &fakeClock{}
	f := newFakeBlogs()
	c, _ := newBlogListing(f, ModeNumbered, clock)

	c.SetSearchTerm("late")
	c.Close()
	clock.Advance(time.Second)

	assert.Empty(t, f.Calls())
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrClosed)
}

func TestCloseCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	fetch := func(ctx context.Context, term string, page, size int) (pagination.Page[models.BlogPost], error) {
		close(started)
		<-ctx.Done()
		return pagination.Page[models.BlogPost]{}, ctx.Err()
	}
	rec := &notify.Recorder{}
	c := New(fetch, models.BlogPostKey, Options[models.BlogPost]{Notifier: rec})

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-started
	c.Close()

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Zero(t, rec.Len())
	assert.Empty(t, c.Items())
}

func productCatalog() []models.Product {
	return []models.Product{
		{ID: "p1", Name: "Landing page", Category: "Web", Price: "$499"},
		{ID: "p2", Name: "Company site", Category: "Web", Price: "$900"},
		{ID: "p3", Name: "Shop", Category: "E-commerce", Price: "$2,400"},
		{ID: "p4", Name: "Brand kit", Category: "Design", Price: "$500"},
		{ID: "p5", Name: "App MVP", Category: "Mobile", Price: "$1000.01"},
		{ID: "p1", Name: "Landing page", Category: "Web", Price: "$499"},
	}
}

func newCatalog(mode Mode) (*Controller[models.Product], *int) {
	calls := 0
	fetch := func(ctx context.Context, term string, page, size int) (pagination.Page[models.Product], error) {
		calls++
		items := productCatalog()
		return pagination.NewPage(items, 0, len(items), len(items)), nil
	}
	return New(fetch, models.ProductKey, Options[models.Product]{
		Mode:        mode,
		PageSize:    2,
		LocalPaging: true,
		Filters:     ProductFilters(),
	}), &calls
}

func productIDs(ps []models.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestCatalogPagesLocally(t *testing.T) {
	c, calls := newCatalog(ModeNumbered)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	assert.Equal(t, 3, c.TotalPages())
	assert.Equal(t, []string{"p1", "p2"}, productIDs(c.Visible()))

	require.NoError(t, c.SetPage(ctx, 2))
	assert.Equal(t, []string{"p5"}, productIDs(c.Visible()))
	assert.ErrorIs(t, c.SetPage(ctx, 3), apperr.ErrValidation)
	assert.Equal(t, 1, *calls)
}

func TestCatalogPriceFilter(t *testing.T) {
	c, calls := newCatalog(ModeNumbered)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.SetPage(ctx, 1))

	require.NoError(t, c.SetFilter(ctx, FilterPrice, "mid"))
	assert.Equal(t, 0, c.PageIndex())
	assert.Equal(t, []string{"p2", "p4"}, productIDs(c.Visible()))
	assert.Equal(t, 1, c.TotalPages())

	require.NoError(t, c.SetFilter(ctx, FilterCategory, "web"))
	assert.Equal(t, []string{"p2"}, productIDs(c.Visible()))

	require.NoError(t, c.SetFilter(ctx, FilterPrice, "all"))
	assert.Equal(t, []string{"p1", "p2"}, productIDs(c.Visible()))

	assert.ErrorIs(t, c.SetFilter(ctx, FilterPrice, "cheap"), apperr.ErrValidation)
	assert.Equal(t, 1, *calls)
}

func TestCatalogLoadMore(t *testing.T) {
	c, _ := newCatalog(ModeAccumulate)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	assert.Equal(t, []string{"p1", "p2"}, productIDs(c.Visible()))
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, productIDs(c.Visible()))
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, productIDs(c.Visible()))
	assert.False(t, c.HasMore())
}

func TestOnSearchReportsOutcome(t *testing.T) {
	clock := &fakeClock{}
	f := newFakeBlogs()
	f.fail[0] = apperr.Network("list blogs", errors.New("offline"))

	var got []string
	var errs []error
	c := New(f.fetch, models.BlogPostKey, Options[models.BlogPost]{
		AfterFunc: clock.AfterFunc,
		OnSearch: func(term string, err error) {
			got = append(got, term)
			errs = append(errs, err)
		},
	})

	c.SetSearchTerm("seo")
	clock.Advance(DefaultDebounce)

	assert.Equal(t, []string{"seo"}, got)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apperr.ErrNetwork)
	assert.False(t, c.Loading())
}

func TestSearchNowCancelsPendingSearch(t *testing.T) {
	clock := &fakeClock{}
	f := newFakeBlogs()
	f.pages["go"] = [][]models.BlogPost{{post("g1", "Dev")}}
	c, _ := newBlogListing(f, ModeNumbered, clock)

	c.SetSearchTerm("g")
	require.NoError(t, c.Search(context.Background(), "go"))
	clock.Advance(time.Second)

	assert.Equal(t, []call{{Term: "go", Page: 0}}, f.Calls())
	assert.Equal(t, "go", c.PendingTerm())
	assert.Equal(t, []string{"g1"}, postIDs(c.Visible()))
}
