// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель: упростить формирование структурированных полей лога.
package sl

import (
	"log/slog"
	"os"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to save user", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// UserID возвращает slog.Attr с идентификатором пользователя.
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// Period возвращает slog.Attr с расчётным периодом.
func Period(period string) slog.Attr {
	return slog.String("period", period)
}

// New создаёт текстовый логгер в stdout. Для env "local" и "dev"
// включается уровень debug, иначе info.
func New(env string) *slog.Logger {
	level := slog.LevelInfo
	switch env {
	case "local", "dev":
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
