// Package notify carries user-facing messages out of the sign-in flow.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Sink displays messages. Calls are fire-and-forget.
type Sink interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// ZapSink logs every notice.
type ZapSink struct {
	logger *zap.SugaredLogger
}

func NewZapSink(logger *zap.SugaredLogger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Success(_ context.Context, msg string) {
	s.logger.Infow("notice", "level", LevelSuccess, "message", msg)
}

func (s *ZapSink) Error(_ context.Context, msg string) {
	s.logger.Warnw("notice", "level", LevelError, "message", msg)
}

// Recorder keeps notices in order so they can be returned to the caller.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Success(_ context.Context, msg string) { r.add(LevelSuccess, msg) }

func (r *Recorder) Error(_ context.Context, msg string) { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg})
}

// Notices returns a copy of what was recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

type tee []Sink

// Tee fans every notice out to all sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Success(ctx context.Context, msg string) {
	for _, s := range t {
		s.Success(ctx, msg)
	}
}

func (t tee) Error(ctx context.Context, msg string) {
	for _, s := range t {
		s.Error(ctx, msg)
	}
}
