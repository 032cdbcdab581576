package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefixRouter() *Router {
	return NewRouter(&Files{}, &Grep{}, &Merge{})
}

func TestParseMessageAliasesAndPrefixes(t *testing.T) {
	r := prefixRouter()
	for _, content := range []string{".files chunk 5", "!files chunk 5", ".f chunk 5", "!fuzzy chunk 5", ".FILE chunk 5", ".file_search chunk 5"} {
		t.Run(content, func(t *testing.T) {
			req, ok, err := r.ParseMessage(content)
			require.True(t, ok)
			require.NoError(t, err)
			assert.Equal(t, "files", req.Name)
			assert.Equal(t, "chunk", req.String("query"))
			assert.Equal(t, int64(5), req.Int("limit", 0))
		})
	}
}

func TestParseMessageQuotedQuery(t *testing.T) {
	req, ok, err := prefixRouter().ParseMessage(`.grep "fn main" 2`)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "grep", req.Name)
	assert.Equal(t, "fn main", req.String("query"))
	assert.Equal(t, int64(2), req.Int("limit", 0))
}

func TestParseMessageIgnoresChat(t *testing.T) {
	r := prefixRouter()
	for _, content := range []string{"hello", "...", ". files x", "!play song", ""} {
		_, ok, err := r.ParseMessage(content)
		assert.False(t, ok, content)
		assert.NoError(t, err, content)
	}
}

func TestParseMessageMergeChoiceAndRest(t *testing.T) {
	r := prefixRouter()

	req, ok, err := r.ParseMessage(".merge squash `Fix chunk cache`")
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "squash", req.String("method"))
	assert.Equal(t, "`Fix chunk cache`", req.String("title"))

	req, _, err = r.ParseMessage("!merge Fix chunk cache")
	require.NoError(t, err)
	assert.Empty(t, req.String("method"))
	assert.Equal(t, "Fix chunk cache", req.String("title"))

	req, _, err = r.ParseMessage(".merge")
	require.NoError(t, err)
	assert.Empty(t, req.Strings)
}

func TestParseMessageUsageErrors(t *testing.T) {
	r := prefixRouter()

	_, ok, err := r.ParseMessage(".files")
	require.True(t, ok)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "missing `query`", usage.Reason)
	assert.Equal(t, ".files <query> [limit]", usage.Usage)

	_, _, err = r.ParseMessage(".f chunk cache")
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Reason, "`limit` must be a number")

	_, _, err = r.ParseMessage(".f chunk 3 extra")
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "unexpected `extra`", usage.Reason)
}

func TestNextArg(t *testing.T) {
	arg, rest := nextArg(`  "a b" c`)
	assert.Equal(t, "a b", arg)
	assert.Equal(t, " c", rest)

	arg, rest = nextArg(`"unterminated c`)
	assert.Equal(t, `"unterminated`, arg)
	assert.Equal(t, " c", rest)

	arg, rest = nextArg("")
	assert.Empty(t, arg)
	assert.Empty(t, rest)
}
