package pubfront

import (
	"net/http"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed(t *testing.T) {
	a := newTestApp(t, defaultBucket())

	rec := a.get(t, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "-created_at", a.cosmic.lastCall("posts").Get("sort"))

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)

	assert.Equal(t, "Test Blog", feed.Title)
	assert.Equal(t, "https://blog.example.com/", feed.Link)
	assert.Equal(t, "A blog for tests", feed.Description)
	require.Len(t, feed.Items, 3, "drafts are never in the feed")

	item := feed.Items[0]
	assert.Equal(t, "Hello World", item.Title)
	assert.Equal(t, "https://blog.example.com/posts/hello-world/", item.Link)
	assert.Equal(t, "https://blog.example.com/posts/hello-world/", item.GUID)
	assert.Equal(t, "About Hello World", item.Description)
	require.NotNil(t, item.PublishedParsed)
	assert.Equal(t, "2024-03-03", item.PublishedParsed.UTC().Format("2006-01-02"))
	assert.Equal(t, []string{"Technology", "go", "web"}, item.Categories)
	require.NotEmpty(t, item.Authors)
	assert.Equal(t, "Jane Doe", item.Authors[0].Name)
}

func TestFeedWithoutPosts(t *testing.T) {
	a := newTestApp(t, bucket{})

	rec := a.get(t, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
}
