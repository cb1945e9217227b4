package sl

import "log/slog"

// Err оформляет ошибку как атрибут лога
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
