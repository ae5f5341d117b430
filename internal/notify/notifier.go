package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

// Notifier surfaces operation outcomes to the user.
type Notifier interface {
	Notify(ctx context.Context, notice models.Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notice models.Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, notice models.Notice) { f(ctx, notice) }

// Nop discards notices.
var Nop Notifier = NotifierFunc(func(context.Context, models.Notice) {})

// LogNotifier logs every notice and hands it to the request Recorder, if any.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, notice models.Notice) {
	fields := []zap.Field{
		zap.String("level", string(notice.Level)),
		zap.String("title", notice.Title),
		zap.String("description", notice.Description),
	}
	switch notice.Level {
	case models.NoticeError:
		n.logger.Warn("notice", fields...)
	default:
		n.logger.Info("notice", fields...)
	}

	if rec := RecorderFrom(ctx); rec != nil {
		rec.add(notice)
	}
}

// Recorder collects the notices emitted while serving one request.
type Recorder struct {
	mu      sync.Mutex
	notices []models.Notice
}

// Notices returns the recorded notices in emission order.
func (r *Recorder) Notices() []models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *Recorder) add(n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

type recorderKey struct{}

// WithRecorder attaches a fresh Recorder to ctx.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// RecorderFrom returns the Recorder carried by ctx, or nil.
func RecorderFrom(ctx context.Context) *Recorder {
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}
