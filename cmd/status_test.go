package cmd

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 60))

	long := "clone of https://example.com/aiko.git failed: connection reset by peer while reading"
	got := truncate(long, 60)
	assert.Len(t, []rune(got), 60)
	assert.True(t, len(got) <= len(long))

	// Multi-byte runes stay intact at the cut.
	accented := "sincronización de dependencias falló: suma de verificación no válida para el módulo"
	got = truncate(accented, 60)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, []rune(got), 60)
}

func TestShortRev(t *testing.T) {
	assert.Equal(t, "aaa1111", shortRev("aaa1111111111111111111111111111111111111"))
	assert.Equal(t, "abc", shortRev("abc"))
	assert.Equal(t, "-", shortRev(""))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "just now", timeAgo(time.Now()))
	assert.Equal(t, "5m ago", timeAgo(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", timeAgo(time.Now().Add(-3*time.Hour)))
	assert.Equal(t, "2d ago", timeAgo(time.Now().Add(-48*time.Hour)))
}
