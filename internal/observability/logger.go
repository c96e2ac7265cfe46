package observability

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan    EventType = "plan"
	EventTypeLLM     EventType = "llm"
	EventTypeWarning EventType = "warning"
	EventTypeSecret  EventType = "secret"
	EventTypeRunner  EventType = "runner"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	Task      string    `json:"task,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configures a Logger.
type Options struct {
	// LLMLogPath receives every LLM exchange as JSON lines. Empty disables it.
	LLMLogPath string
	MaxSize    int64
	Debug      bool
}

// Logger handles structured logging. Events go through zap; LLM exchanges are
// also appended to a rotating JSONL file. Secret values never reach it, only keys.
type Logger struct {
	zl         *zap.Logger
	llmLogPath string
	maxSize    int64
	mu         sync.Mutex
}

// NewLogger writes JSON events to w.
func NewLogger(w io.Writer, opts Options) *Logger {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)

	if opts.MaxSize <= 0 {
		opts.MaxSize = 10 * 1024 * 1024 // 10MB
	}
	return &Logger{
		zl:         zap.New(core),
		llmLogPath: opts.LLMLogPath,
		maxSize:    opts.MaxSize,
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// Zap exposes the underlying logger for packages that log directly.
func (l *Logger) Zap() *zap.Logger { return l.zl }

func (l *Logger) Sync() error { return l.zl.Sync() }

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	fields := []zap.Field{zap.String("type", string(evt.Type))}
	if evt.Task != "" {
		fields = append(fields, zap.String("task", evt.Task))
	}
	if evt.Data != nil {
		fields = append(fields, zap.Any("data", evt.Data))
	}
	msg := evt.Message
	if msg == "" {
		msg = string(evt.Type)
	}

	switch evt.Type {
	case EventTypeWarning:
		l.zl.Warn(msg, fields...)
	case EventTypeLLM:
		l.zl.Debug(msg, fields...)
	default:
		l.zl.Info(msg, fields...)
	}

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		data, err := json.Marshal(evt)
		if err != nil {
			log.Printf("failed to marshal event: %v", err)
			return
		}
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(task, kind string, steps int, missing []string) {
	l.Log(Event{
		Type:    EventTypePlan,
		Task:    task,
		Message: "plan saved",
		Data: map[string]any{
			"kind":         kind,
			"steps":        steps,
			"missing_info": missing,
		},
	})
}

func (l *Logger) LogLLM(task, provider, prompt, response string) {
	l.Log(Event{
		Type:    EventTypeLLM,
		Task:    task,
		Message: "llm exchange",
		Data: map[string]any{
			"provider": provider,
			"prompt":   prompt,
			"response": response,
		},
	})
}

func (l *Logger) LogWarning(task, message string) {
	l.Log(Event{Type: EventTypeWarning, Task: task, Message: message})
}

// LogSecret records that a secret key was written. The value is never passed in.
func (l *Logger) LogSecret(task, key string) {
	l.Log(Event{
		Type:    EventTypeSecret,
		Task:    task,
		Message: "secret stored",
		Data:    map[string]string{"key": key},
	})
}

func (l *Logger) LogRunnerStep(task string, n int, action, status string) {
	l.Log(Event{
		Type:    EventTypeRunner,
		Task:    task,
		Message: "step executed",
		Data: map[string]any{
			"step":   n,
			"action": action,
			"status": status,
		},
	})
}
