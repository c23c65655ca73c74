package stories

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/storage"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

func TestBuildInstructionTiers(t *testing.T) {
	short := BuildInstruction("فكرة", "مغامرة", types.StoryLengthShort, "ar")
	assert.Contains(t, short, "قصة قصيرة")
	assert.Contains(t, short, "العربية")
	assert.Contains(t, short, "النوع: مغامرة")
	assert.Contains(t, short, "الفكرة: فكرة")
	assert.Contains(t, short, "ابدأ الكتابة مباشرة:")

	medium := BuildInstruction("فكرة", "خيال", "", "")
	assert.Contains(t, medium, "رواية متوسطة", "unknown tier defaults to medium")

	long := BuildInstruction("idea", "fantasy", types.StoryLengthLong, "en")
	assert.Contains(t, long, "رواية طويلة")
	assert.Contains(t, long, "باللغة en")
}

func TestBuildInstructionRequirements(t *testing.T) {
	out := BuildInstruction("ف", "ن", types.StoryLengthMedium, "ar")
	for _, req := range []string{
		"شخصيات متطورة",
		"حوارات طبيعية",
		"عنصر التشويق",
		"النهاية يجب أن تكون مرضية",
	} {
		assert.Contains(t, out, req)
	}
}

func TestExcerpts(t *testing.T) {
	story := "الفقرة الأولى هنا.\n\nالفقرة الثانية هنا.\n\n\n\nالفقرة الثالثة."
	got := Excerpts(story, 2, 100)
	require.Len(t, got, 2)
	assert.Equal(t, "الفقرة الأولى هنا.", got[0])
	assert.Equal(t, "الفقرة الثانية هنا.", got[1])

	trimmed := Excerpts(strings.Repeat("ب", 50), 1, 10)
	require.Len(t, trimmed, 1)
	assert.Len(t, []rune(trimmed[0]), 10)

	assert.Nil(t, Excerpts(story, 0, 100))
	assert.Empty(t, Excerpts("\n\n  \n\n", 3, 100))
}

func TestRenderWritesPDF(t *testing.T) {
	t.Setenv("MEDIA_ROOT", t.TempDir())
	t.Setenv("STORY_FONT", "")
	media, err := storage.NewMediaStore(logger.NewNop())
	require.NoError(t, err)

	r := NewRenderer(logger.NewNop(), media)
	path, err := r.Render("A Test Story", strings.Repeat("Once upon a time there was a reader. ", 200))
	require.NoError(t, err)

	assert.Equal(t, media.StoriesDir(), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(1000), "a multi-page story must not be empty")
}
