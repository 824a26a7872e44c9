package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// QueryLogConfig tunes which statements reach the application log.
type QueryLogConfig struct {
	// SlowThreshold marks statements slower than this as warnings. Zero
	// disables slow query reporting.
	SlowThreshold time.Duration
	// Verbose logs every statement at debug level.
	Verbose bool
}

// QueryLogger routes GORM output through the request-scoped zap logger so
// statements carry the same request_id and trace fields as the handler
// that issued them. Bound parameters are never logged: they can hold
// customer emails and password hashes.
type QueryLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func NewQueryLogger(base *zap.Logger, cfg QueryLogConfig) *QueryLogger {
	if base == nil {
		base = zap.NewNop()
	}
	level := gormlogger.Warn
	if cfg.Verbose {
		level = gormlogger.Info
	}
	return &QueryLogger{
		base:  base.With(zap.String("component", "db")),
		level: level,
		slow:  cfg.SlowThreshold,
	}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.from(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.from(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.from(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace reports failed statements as errors and slow ones as warnings.
// Lookups that find nothing are routine for this app (unknown note slug,
// unused coupon code) and are not treated as failures.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)

	switch {
	case failed && l.level >= gormlogger.Error:
		stmt, rows := fc()
		l.from(ctx).Error("db statement failed", append(statementFields(stmt, rows, elapsed), zap.Error(err))...)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		stmt, rows := fc()
		l.from(ctx).Warn("db statement slow", append(statementFields(stmt, rows, elapsed), zap.Duration("threshold", l.slow))...)
	case l.level >= gormlogger.Info:
		stmt, rows := fc()
		l.from(ctx).Debug("db statement", statementFields(stmt, rows, elapsed)...)
	}
}

// ParamsFilter drops bound values so they never appear in the SQL text.
func (l *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *QueryLogger) from(ctx context.Context) *zap.Logger {
	return WithContext(ctx, l.base)
}

func statementFields(stmt string, rows int64, elapsed time.Duration) []zap.Field {
	stmt = strings.TrimSpace(stmt)
	verb, table := describeStatement(stmt)
	fields := []zap.Field{
		zap.String("statement", stmt),
		zap.String("verb", verb),
		zap.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000),
	}
	if table != "" {
		fields = append(fields, zap.String("table", table))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	return fields
}

// describeStatement returns the SQL verb and the first table it touches.
func describeStatement(stmt string) (verb, table string) {
	words := strings.Fields(stmt)
	verb = "OTHER"
	for i, w := range words {
		upper := strings.ToUpper(strings.Trim(w, "();"))
		switch upper {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			if verb == "OTHER" {
				verb = upper
			}
			if upper == "UPDATE" {
				return verb, tableAt(words, i+1)
			}
		case "FROM", "INTO":
			if verb != "OTHER" {
				return verb, tableAt(words, i+1)
			}
		}
	}
	return verb, ""
}

func tableAt(words []string, i int) string {
	if i >= len(words) {
		return ""
	}
	return strings.Trim(words[i], "\"`();")
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
