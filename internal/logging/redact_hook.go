package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const redacted = "[redacted]"

// DefaultRedactedFields are log fields that must never be written out as is.
var DefaultRedactedFields = []string{"password", "token", "session", "cookie", "secret"}

// RedactHook masks the values of sensitive log fields. It has to be added
// before hooks that ship entries elsewhere (sentry).
type RedactHook struct {
	fields map[string]bool
}

func NewRedactHook(fields []string) *RedactHook {
	h := &RedactHook{fields: make(map[string]bool, len(fields))}
	for _, f := range fields {
		h.fields[strings.ToLower(f)] = true
	}
	return h
}

func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RedactHook) Fire(entry *logrus.Entry) error {
	for k := range entry.Data {
		if h.fields[strings.ToLower(k)] {
			entry.Data[k] = redacted
		}
	}
	return nil
}
