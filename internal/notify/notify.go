package notify

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"devstudio/internal/apperr"

	"github.com/fatih/color"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notification is a non-blocking, user-facing message.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier delivers notifications to whatever the user is looking at.
type Notifier interface {
	Notify(n Notification)
}

// FromError translates err into the message shown to the user.
func FromError(err error) Notification {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return Notification{Level: LevelError, Message: "Something went wrong. Please try again.", Err: err}
	}
	switch e.Kind {
	case apperr.KindValidation:
		return Notification{Level: LevelWarning, Message: e.Msg, Err: err}
	case apperr.KindAuth:
		return Notification{Level: LevelError, Message: "Your session has expired or you are not logged in. Please log in again.", Err: err}
	case apperr.KindNotFound:
		return Notification{Level: LevelError, Message: "The requested item could not be found.", Err: err}
	default:
		return Notification{Level: LevelError, Message: "Could not reach the server. Please try again.", Err: err}
	}
}

// Console prints notifications to a terminal.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose}
}

func (c *Console) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var paint func(format string, a ...interface{}) string
	switch n.Level {
	case LevelError:
		paint = color.New(color.FgRed).SprintfFunc()
	case LevelWarning:
		paint = color.New(color.FgYellow).SprintfFunc()
	default:
		paint = color.New(color.FgCyan).SprintfFunc()
	}
	fmt.Fprintln(c.w, paint("%s", n.Message))
	if c.verbose && n.Err != nil {
		fmt.Fprintln(c.w, color.HiBlackString("  %v", n.Err))
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type nop struct{}

func (nop) Notify(Notification) {}

// Discard drops every notification.
var Discard Notifier = nop{}
