package command

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"devstudio/internal/apiclient"
	"devstudio/internal/comments"
	"devstudio/internal/config"
	"devstudio/internal/metrics"
	"devstudio/internal/notify"
	"devstudio/internal/session"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

// syncBuffer is written from the debounce goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/api/blogs", func(c *gin.Context) {
		page := c.Query("page")
		content := []gin.H{{"id": 1, "title": "Hello world", "category": "News"}, {"id": 2, "title": "Design systems", "category": "Design"}}
		if page == "1" {
			content = []gin.H{{"id": 3, "title": "Go in production", "category": "Dev"}}
		}
		c.JSON(http.StatusOK, gin.H{"content": content, "totalPages": 2})
	})
	r.GET("/api/blogs/search", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"content":    []gin.H{{"id": 9, "title": "Searching for " + c.Query("q"), "category": "Dev"}},
			"totalPages": 1,
		})
	})
	r.GET("/api/comments/post/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"content": []gin.H{
				{"id": 10, "content": "Great post", "authorName": "Ada Lovelace", "replies": []gin.H{
					{"id": 11, "content": "Agreed", "authorName": "Alan Turing", "parentId": 10},
				}},
				{"id": 12, "content": "Thanks", "authorName": "Grace Hopper"},
			},
			"last": true,
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func setTestDeps(t *testing.T, srv *httptest.Server) *notify.Recorder {
	t.Helper()
	keyring.MockInit()
	color.NoColor = true

	rec := &notify.Recorder{}
	deps = &app{
		cfg: &config.Config{
			BlogPageSize:    2,
			CommentPageSize: 10,
			ProductPageSize: 9,
			DebounceDelay:   20 * time.Millisecond,
		},
		logger:   zap.NewNop(),
		metrics:  metrics.NewCollector(),
		session:  session.New(session.NewKeyringStore("devstudio-test")),
		notifier: rec,
	}
	deps.client = apiclient.New(srv.URL, apiclient.Options{MaxRetries: 0, Metrics: deps.metrics})
	t.Cleanup(func() { deps = nil })
	return rec
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		yes   bool
		want  bool
	}{
		{"yes", "y\n", false, true},
		{"full word", "YES\n", false, true},
		{"no", "n\n", false, false},
		{"empty answer", "\n", false, false},
		{"end of input", "", false, false},
		{"assume yes", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &promptConfirmer{in: bufio.NewReader(strings.NewReader(tt.input)), out: &out, yes: tt.yes}

			got, err := p.Confirm(context.Background(), "Delete?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if !tt.yes {
				assert.Contains(t, out.String(), "Delete? [y/N]")
			}
		})
	}
}

func TestRenderThreadHidesCollapsedReplies(t *testing.T) {
	srv := fakeAPI(t)
	setTestDeps(t, srv)

	th := newThread("5")
	defer th.Close()
	require.NoError(t, loadPages(context.Background(), th, 3))

	var out bytes.Buffer
	renderThread(&out, th)
	assert.Contains(t, out.String(), "2 comments (3 including replies)")
	assert.Contains(t, out.String(), "[AL] Ada Lovelace")
	assert.Contains(t, out.String(), "1 replies hidden")
	assert.NotContains(t, out.String(), "Agreed")

	expandAll(th, th.Comments())
	out.Reset()
	renderThread(&out, th)
	assert.Contains(t, out.String(), "    [AT] Alan Turing")
	assert.Contains(t, out.String(), "Agreed")
}

func TestBrowseBlogs(t *testing.T) {
	srv := fakeAPI(t)
	rec := setTestDeps(t, srv)

	lines := make(chan string)
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- browseBlogs(context.Background(), lines, out, false) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Page 1/2") }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "Hello world")

	lines <- ":next"
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Go in production") }, time.Second, 5*time.Millisecond)

	lines <- ":page 7"
	require.Eventually(t, func() bool { return rec.Len() == 1 }, time.Second, 5*time.Millisecond)

	lines <- "go"
	lines <- "golang"
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Searching for golang")
	}, time.Second, 5*time.Millisecond)

	lines <- ":quit"
	require.NoError(t, <-done)
}

func TestReportedErrorKeepsCause(t *testing.T) {
	err := reported(comments.ErrCancelled)
	assert.ErrorIs(t, err, comments.ErrCancelled)
	assert.Nil(t, reported(nil))
}
