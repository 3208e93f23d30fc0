package aigc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/musebox/musebox-backend/pkg/enums"
)

func TestLyricsExcerptChorusTakesEightLines(t *testing.T) {
	lines := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9", "l10"}
	lyrics := strings.Join(lines, "\n")

	got := lyricsExcerpt(lyrics, enums.LyricsSectionChorus)
	assert.Equal(t, strings.Join(lines[:8], "\n"), got)
}

func TestLyricsExcerptVerseTakesFourLines(t *testing.T) {
	lyrics := "a\nb\nc\nd\ne\nf"

	got := lyricsExcerpt(lyrics, enums.LyricsSectionVerse)
	assert.Equal(t, "a\nb\nc\nd", got)
}

func TestLyricsExcerptAllCapsAtTwoHundredRunes(t *testing.T) {
	lyrics := strings.Repeat("словослово", 30) // 300 runes, multibyte
	got := lyricsExcerpt(lyrics, enums.LyricsSectionAll)
	assert.Equal(t, 200, len([]rune(got)))
}

func TestLyricsExcerptShortLyricsPassThrough(t *testing.T) {
	assert.Equal(t, "short", lyricsExcerpt("short", enums.LyricsSectionAll))
	assert.Equal(t, "a\nb", lyricsExcerpt("a\nb", enums.LyricsSectionChorus))
	assert.Equal(t, "", lyricsExcerpt("", enums.LyricsSectionChorus))
}

func TestLyricImagePromptCarriesSongAndStyle(t *testing.T) {
	var pb promptBuilder
	prompt := pb.LyricImage("Night Drive", "Ada Vale", "neon rivers run", enums.ImageStyleAbstract)

	assert.Contains(t, prompt, `"Night Drive"`)
	assert.Contains(t, prompt, "Ada Vale")
	assert.Contains(t, prompt, "neon rivers run")
	assert.Contains(t, prompt, enums.ImageStyleAbstract.String())
}

func TestCommentSummaryPromptCapsAtTenComments(t *testing.T) {
	comments := make([]string, 15)
	for i := range comments {
		comments[i] = "comment"
	}

	var pb promptBuilder
	prompt := pb.CommentSummary("Song", "Artist", comments)
	assert.Equal(t, maxSummaryInputs, strings.Count(prompt, "- comment"))
}

func TestTextToVideoPromptCarriesMood(t *testing.T) {
	var pb promptBuilder
	prompt := pb.TextToVideo("Song", "Artist", "lyrics here", enums.ImageStyleBeautiful, "melancholic")

	assert.Contains(t, prompt, "melancholic")
	assert.Contains(t, prompt, styleText[enums.ImageStyleBeautiful])
}

func TestStyleTextForUnknownStyleFallsBack(t *testing.T) {
	assert.Equal(t, styleText[enums.ImageStyleBeautiful], styleTextFor(enums.ImageStyle("nonsense")))
}
