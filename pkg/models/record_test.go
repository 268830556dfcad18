package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawRecordAccessors(t *testing.T) {
	rec := RawRecord{
		"title":  "Sapiens",
		"score":  0.97,
		"rating": 3,
		"pages":  "412",
		"tags":   []string{"history"},
		"mixed":  []interface{}{"a", 2},
		"empty":  nil,
	}

	t.Run("string coerces scalars", func(t *testing.T) {
		assert.Equal(t, "Sapiens", rec.String("title"))
		assert.Equal(t, "3", rec.String("rating"))
		assert.Equal(t, "", rec.String("empty"))
		assert.Equal(t, "", rec.String("absent"))
	})

	t.Run("float accepts numeric strings", func(t *testing.T) {
		v, ok := rec.Float("score")
		assert.True(t, ok)
		assert.Equal(t, 0.97, v)

		v, ok = rec.Float("pages")
		assert.True(t, ok)
		assert.Equal(t, 412.0, v)

		_, ok = rec.Float("title")
		assert.False(t, ok)
		_, ok = rec.Float("absent")
		assert.False(t, ok)
	})

	t.Run("int truncates", func(t *testing.T) {
		v, ok := rec.Int("score")
		assert.True(t, ok)
		assert.Equal(t, 0, v)

		v, ok = rec.Int("rating")
		assert.True(t, ok)
		assert.Equal(t, 3, v)
	})

	t.Run("strings handles both slice shapes", func(t *testing.T) {
		assert.Equal(t, []string{"history"}, rec.Strings("tags"))
		assert.Equal(t, []string{"a", "2"}, rec.Strings("mixed"))
		assert.Nil(t, rec.Strings("title"))
		assert.Nil(t, rec.Strings("absent"))
	})

	t.Run("has distinguishes absent from empty", func(t *testing.T) {
		assert.True(t, rec.Has("empty"))
		assert.False(t, rec.Has("absent"))
	})
}

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "books/ABC123DEF456.jpg", ArtifactKey("books", "ABC123DEF456", "jpg"))
}
