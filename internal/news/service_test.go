package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wisetrade/internal/domain/models"
)

func TestDedupByURL(t *testing.T) {
	now := time.Now()
	in := []models.Article{
		{Title: "first", URL: "https://a.example/1", PublishedAt: now},
		{Title: "duplicate", URL: "https://a.example/1", PublishedAt: now},
		{Title: "second", URL: "https://a.example/2", PublishedAt: now},
		{Title: "no url", URL: ""},
	}

	out := Dedup(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title, "first occurrence wins")
	assert.Equal(t, "second", out[1].Title)
}

func TestFilterSince(t *testing.T) {
	now := time.Now()
	in := []models.Article{
		{Title: "fresh", URL: "u1", PublishedAt: now.Add(-time.Hour)},
		{Title: "stale", URL: "u2", PublishedAt: now.Add(-100 * time.Hour)},
	}

	out := filterSince(in, now.Add(-72*time.Hour))
	assert.Len(t, out, 1)
	assert.Equal(t, "fresh", out[0].Title)
}
