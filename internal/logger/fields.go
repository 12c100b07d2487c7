package logger

import (
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxPayloadBytes caps raw payloads attached to log entries.
const MaxPayloadBytes = 4 << 10

// Payload logs a raw upstream payload, truncated to MaxPayloadBytes on a rune boundary.
func Payload(key, raw string) zap.Field {
	if len(raw) <= MaxPayloadBytes {
		return zap.String(key, raw)
	}
	cut := MaxPayloadBytes
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return zap.String(key, raw[:cut]+"...(truncated, "+strconv.Itoa(len(raw))+" bytes)")
}
