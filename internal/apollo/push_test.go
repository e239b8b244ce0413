package apollo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pushScript = `<script>(window[Symbol.for("ApolloSSRDataTransport")] ??= []).push({"rehydrate":{"q1":{"data":{"homefeed":{"edges":[` +
	`{"node":{"id":"FEATURED-0","title":"Today","items":[` +
	`{"__typename":"Post","id":"10","name":"Ten","slug":"ten","tagline":"with a } brace","votesCount":10,"user":undefined},` +
	`{"__typename":"Post","id":"11","name":"Eleven","slug":"eleven","votesCount":11}]}},` +
	`{"node":{"id":"FEATURED-1","items":[{"__typename":"Post","id":"12","name":"Twelve","slug":"twelve"}]}}]}}}}});</script>`

const legacyPushScript = `<script>(window[Symbol.for("ApolloSSRDataTransport")] ??= []).push({rehydrate:{'q2':{result:{data:{post:{__typename:'Post',id:'20',name:'Twenty',slug:'twenty',makers:[{id:'m',name:'M',username:'m'}]}}}}}});</script>`

func TestExtractPushPayloads(t *testing.T) {
	doc := docFrom(t, `<html><head>`+pushScript+legacyPushScript+`<script>other.push({"a":1})</script></head></html>`)

	payloads := ExtractPushPayloads(doc)
	require.Len(t, payloads, 2)
	assert.Contains(t, payloads[0].Rehydrate, "q1")
	assert.Contains(t, payloads[1].Rehydrate, "q2")
	assert.Len(t, payloads[1].Values(), 1)
}

func TestCollectHomefeed(t *testing.T) {
	payloads := ExtractPushPayloads(docFrom(t, `<html>`+pushScript+`</html>`))

	featured := CollectHomefeed(payloads, "FEATURED-0")
	require.Len(t, featured, 2)
	assert.Equal(t, "ten", featured[0].Slug)
	assert.Equal(t, "with a } brace", featured[0].Tagline)
	assert.Nil(t, featured[0].User)
	assert.Equal(t, 11, featured[1].VotesCount)

	assert.Empty(t, CollectHomefeed(payloads, "POPULAR-0"))
}

func TestCollectPostsTraversesAndDedupes(t *testing.T) {
	payloads := ExtractPushPayloads(docFrom(t, `<html>`+pushScript+pushScript+legacyPushScript+`</html>`))

	posts := CollectPosts(payloads)
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	assert.ElementsMatch(t, []string{"ten", "eleven", "twelve", "twenty"}, slugs)

	for _, p := range posts {
		if p.Slug == "twenty" {
			require.Len(t, p.Makers, 1)
			assert.Equal(t, "m", p.Makers[0].Username)
		}
	}
}

func TestObjectAfter(t *testing.T) {
	obj, ok := objectAfter(`x.push( {"a":"}{","b":{'c':` + "`}`" + `}} ) trailing`, 0)
	require.True(t, ok)
	assert.Equal(t, `{"a":"}{","b":{'c':`+"`}`"+`}}`, obj)

	_, ok = objectAfter(`x.push({"a":1`, 0)
	assert.False(t, ok)
}
