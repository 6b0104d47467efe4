package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
	FATAL: "\033[35m",
}

const colorReset = "\033[0m"

// Config holds logger configuration
type Config struct {
	Level       Level
	Output      io.Writer
	JSONFormat  bool
	EnableColor bool
	ShowCaller  bool
	TimeFormat  string
	ServiceName string
}

// DefaultConfig reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR and SERVICE_NAME.
func DefaultConfig() *Config {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "fusionx"
	}
	return &Config{
		Level:       ParseLevel(os.Getenv("LOG_LEVEL")),
		Output:      os.Stdout,
		JSONFormat:  os.Getenv("LOG_FORMAT") == "json",
		EnableColor: os.Getenv("LOG_COLOR") != "false" && os.Getenv("LOG_FORMAT") != "json",
		ShowCaller:  true,
		TimeFormat:  time.RFC3339Nano,
		ServiceName: service,
	}
}

// Logger writes leveled entries with a fixed set of fields.
type Logger struct {
	config *Config
	mu     *sync.Mutex
	fields map[string]interface{}
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Service   string                 `json:"service,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a new logger with given config
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = time.RFC3339Nano
	}
	return &Logger{
		config: config,
		mu:     &sync.Mutex{},
		fields: map[string]interface{}{},
	}
}

// Nop returns a logger that drops everything. Used by tests.
func Nop() *Logger {
	return New(&Config{Level: FATAL + 1, Output: io.Discard})
}

// Default returns the process-wide logger.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(nil)
	})
	return defaultLogger
}

// With returns a child logger carrying one more field.
func (l *Logger) With(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child logger carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	child := &Logger{
		config: l.config,
		mu:     l.mu,
		fields: make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// WithError adds error field to logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	adminKey
)

// ContextWithRequestID stores the request id picked up by WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithAdmin stores the authenticated admin identity.
func ContextWithAdmin(ctx context.Context, admin string) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// RequestIDFrom returns the request id stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AdminFrom returns the admin identity stored in ctx, if any.
func AdminFrom(ctx context.Context) string {
	admin, _ := ctx.Value(adminKey).(string)
	return admin
}

// WithContext extracts request id and admin identity from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := map[string]interface{}{}
	if id := RequestIDFrom(ctx); id != "" {
		fields["request_id"] = id
	}
	if admin := AdminFrom(ctx); admin != "" {
		fields["admin"] = admin
	}
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(ERROR, msg, args...) }

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(FATAL, msg, args...)
	os.Exit(1)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if level < l.config.Level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(l.config.TimeFormat),
		Level:     levelNames[level],
		Message:   msg,
		Service:   l.config.ServiceName,
	}
	if l.config.ShowCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", shortenPath(file), line)
		}
	}
	if len(l.fields) > 0 {
		entry.Fields = l.fields
	}

	var line string
	if l.config.JSONFormat {
		data, err := json.Marshal(entry)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"level":"ERROR","message":"log marshal failed: %v"}`, err))
		}
		line = string(data)
	} else {
		line = l.formatText(level, entry)
	}

	l.mu.Lock()
	fmt.Fprintln(l.config.Output, line)
	l.mu.Unlock()
}

func (l *Logger) formatText(level Level, entry LogEntry) string {
	var sb strings.Builder
	if l.config.EnableColor {
		sb.WriteString(levelColors[level])
	}
	sb.WriteString(entry.Timestamp)
	sb.WriteString(fmt.Sprintf(" [%-5s]", entry.Level))
	if l.config.EnableColor {
		sb.WriteString(colorReset)
	}
	if entry.Caller != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", entry.Caller))
	}
	sb.WriteString(" ")
	sb.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" |")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, entry.Fields[k]))
		}
	}
	return sb.String()
}

// ============================================================
// Request Logger
// ============================================================

// RequestLog represents an HTTP request log
type RequestLog struct {
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
	ClientIP  string
	UserAgent string
	RequestID string
}

// LogRequest logs at WARN for 4xx and ERROR for 5xx.
func (l *Logger) LogRequest(req RequestLog) {
	level := INFO
	if req.Status >= 500 {
		level = ERROR
	} else if req.Status >= 400 {
		level = WARN
	}

	l.WithFields(map[string]interface{}{
		"method":      req.Method,
		"path":        req.Path,
		"status":      req.Status,
		"duration_ms": req.Duration.Milliseconds(),
		"client_ip":   req.ClientIP,
		"user_agent":  truncate(req.UserAgent, 120),
		"request_id":  req.RequestID,
	}).log(level, "%s %s -> %d (%s)", req.Method, req.Path, req.Status, req.Duration)
}

// ============================================================
// Business Event Logger
// ============================================================

// EventLog represents a business event log
type EventLog struct {
	Event    string
	Actor    string
	Entity   string
	EntityID string
	Action   string
	Success  bool
	Metadata map[string]interface{}
	Error    string
}

// LogEvent logs a business event; failures log at ERROR.
func (l *Logger) LogEvent(evt EventLog) {
	level := INFO
	if !evt.Success {
		level = ERROR
	}

	fields := map[string]interface{}{
		"event":     evt.Event,
		"action":    evt.Action,
		"entity":    evt.Entity,
		"entity_id": evt.EntityID,
		"success":   evt.Success,
	}
	if evt.Actor != "" {
		fields["actor"] = evt.Actor
	}
	for k, v := range evt.Metadata {
		fields[k] = v
	}
	if evt.Error != "" {
		fields["error"] = evt.Error
	}

	l.WithFields(fields).log(level, "[%s] %s %s %s", evt.Event, evt.Action, evt.Entity, evt.EntityID)
}

// ParseLevel maps a level name to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func shortenPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return path
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { Default().Fatal(msg, args...) }
