package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutop(t *testing.T) {
	assert.Equal(t, "<p>one<br>\ntwo</p>\n<p>three</p>", Autop("one\ntwo\n\n\nthree"))
	assert.Equal(t, "<p>already</p>", Autop("<p>already</p>"))
	assert.Equal(t, "", Autop(""))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Wide field &", StripTags("<p><em>Wide</em>\n field &amp;</p>"))
	assert.Equal(t, "keep", StripTags("<script>alert(1)</script>keep<style>p{}</style>"))
	assert.Equal(t, "a b", StripTags("a<br/>b"))
}

func TestTrimWords(t *testing.T) {
	assert.Equal(t, "a b c", TrimWords("a  b c", 3, "..."))
	assert.Equal(t, "a b...", TrimWords("a b c d", 2, "..."))
}
