package analyzer

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger оборачивает slog.Logger и задает единые имена полей для событий модели.
type Logger struct {
	*slog.Logger
}

// NewLogger создает Logger поверх handler. При nil пишет текст в stderr с уровнем Info.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger создает Logger с выводом в JSON.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger создает Logger с человекочитаемым выводом.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger создает Logger, который ничего не пишет.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000),
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// ParseLevel переводит строку конфигурации (debug, info, warn, error) в уровень slog.
// Пустая строка - Info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(strings.ToUpper(s)))
	return level, err
}

// WithGeneration добавляет номер снимка модели.
func (l *Logger) WithGeneration(gen uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", gen),
	}
}

// LogLoad пишет итог загрузки модели.
func (l *Logger) LogLoad(ctx context.Context, dicdir string, lexSize, lsize, rsize int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "загрузка модели не удалась",
			"dicdir", dicdir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "модель загружена",
			"dicdir", dicdir,
			"lexsize", lexSize,
			"lsize", lsize,
			"rsize", rsize,
		)
	}
}

// LogSwap пишет замену снимка модели.
func (l *Logger) LogSwap(ctx context.Context, oldGen, newGen uint64) {
	l.InfoContext(ctx, "модель заменена",
		"old_generation", oldGen,
		"new_generation", newGen,
	)
}

// LogReclaim пишет освобождение снимка после завершения последнего разбора.
// Номер снимка добавляется через WithGeneration.
func (l *Logger) LogReclaim(ctx context.Context, err error) {
	if err != nil {
		l.WarnContext(ctx, "ошибка освобождения модели",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "модель освобождена")
	}
}

// LogParse пишет итог разбора одного предложения.
func (l *Logger) LogParse(ctx context.Context, size int, err error) {
	if err != nil {
		l.DebugContext(ctx, "разбор не удался",
			"size", size,
			"error", err,
		)
	}
}

// LogBatch пишет итог пакетного разбора.
func (l *Logger) LogBatch(ctx context.Context, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "пакетный разбор прерван",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "пакетный разбор завершен",
			"count", count,
		)
	}
}
