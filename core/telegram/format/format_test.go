package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", Shorten("abc", 3))
	assert.Equal(t, "ab…", Shorten("abcd", 3))
	assert.Equal(t, "при…", Shorten("привет", 4))
	assert.Equal(t, "…", Shorten("abc", 1))
	assert.Equal(t, "", Shorten("abc", 0))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeHTML("a <b> & c"))
}

func TestPointers(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", DerefString(StringPtr("x"), "-"))
	assert.Equal(t, "-", DerefString(nil, "-"))
}
