package reactions

import (
	"context"
	"errors"
	"sync"

	"devstudio/internal/apperr"
	"devstudio/internal/models"
	"devstudio/internal/notify"

	"go.uber.org/zap"
)

// ErrTogglePending is returned while a previous toggle is still in flight.
var ErrTogglePending = errors.New("like toggle already in progress")

type API interface {
	ToggleLike(ctx context.Context, postID string) (models.LikeState, error)
}

// Session reports whether the user may like posts.
type Session interface {
	IsAuthenticated() bool
}

// Likes tracks the like state of one post and applies toggles optimistically.
type Likes struct {
	postID   string
	api      API
	session  Session
	notifier notify.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	state   models.LikeState
	pending bool
}

func NewLikes(post models.BlogPost, api API, session Session, notifier notify.Notifier, logger *zap.Logger) *Likes {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Likes{
		postID:   post.ID,
		api:      api,
		session:  session,
		notifier: notifier,
		logger:   logger,
		state:    models.LikeState{Liked: post.LikedByMe, Likes: post.Likes},
	}
}

func (l *Likes) State() models.LikeState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Toggle flips the like locally, then reconciles with the server's answer. A
// failed call restores the previous state.
func (l *Likes) Toggle(ctx context.Context) (models.LikeState, error) {
	if l.session == nil || !l.session.IsAuthenticated() {
		err := apperr.Auth("like post", 0)
		l.notifier.Notify(notify.FromError(err))
		return l.State(), err
	}

	l.mu.Lock()
	if l.pending {
		l.mu.Unlock()
		return l.State(), ErrTogglePending
	}
	l.pending = true
	prev := l.state
	l.state = flip(prev)
	l.mu.Unlock()

	got, err := l.api.ToggleLike(ctx, l.postID)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = false
	if err != nil {
		l.state = prev
		l.logger.Warn("like toggle failed, rolled back", zap.String("post_id", l.postID), zap.Error(err))
		l.notifier.Notify(notify.FromError(err))
		return l.state, err
	}
	l.state = got
	return l.state, nil
}

func flip(s models.LikeState) models.LikeState {
	if s.Liked {
		return models.LikeState{Liked: false, Likes: max(s.Likes-1, 0)}
	}
	return models.LikeState{Liked: true, Likes: s.Likes + 1}
}
