package aigc

import (
	"fmt"
	"strings"

	"github.com/musebox/musebox-backend/pkg/enums"
)

const (
	chorusLineCount  = 8
	verseLineCount   = 4
	excerptMaxRunes  = 200
	maxSummaryInputs = 10
	summaryMaxTokens = 300
	summaryTemp      = 0.7
)

var styleText = map[enums.ImageStyle]string{
	enums.ImageStyleBeautiful:  "graceful and flowing",
	enums.ImageStyleAbstract:   "abstract and artistic",
	enums.ImageStyleRealistic:  "realistic and natural",
	enums.ImageStyleMinimalist: "minimalist and elegant",
	enums.ImageStyleArtistic:   "artistic and inventive",
}

// promptBuilder renders provider prompts from song material. Pure functions,
// no IO.
type promptBuilder struct{}

// LyricImage builds the text-to-image prompt for a lyrics excerpt.
func (promptBuilder) LyricImage(title, artist, excerpt string, style enums.ImageStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create cover artwork for the song \"%s\" by %s.\n", title, artist)
	fmt.Fprintf(&b, "Lyrics excerpt: %s\n\n", excerpt)
	b.WriteString("Requirements:\n")
	b.WriteString("1. Capture the mood and emotion of the lyrics\n")
	b.WriteString("2. Visually refined, with a strong artistic sense\n")
	b.WriteString("3. Suitable as music cover art\n")
	fmt.Fprintf(&b, "4. Style: %s", style.String())
	return b.String()
}

// CommentSummary builds the summarization prompt from up to ten comments.
func (promptBuilder) CommentSummary(title, artist string, comments []string) string {
	if len(comments) > maxSummaryInputs {
		comments = comments[:maxSummaryInputs]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the listener comments below, write a 100-200 word summary review of the song \"%s\" by %s.\n\n", title, artist)
	b.WriteString("Listener comments:\n")
	for _, comment := range comments {
		fmt.Fprintf(&b, "- %s\n", comment)
	}
	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Summarize the overall sentiment and impressions\n")
	b.WriteString("2. Pull out recurring keywords and themes\n")
	b.WriteString("3. Keep the language concise and objective\n")
	b.WriteString("4. Highlight what makes the song stand out\n")
	b.WriteString("5. Stay within 100-200 words")
	return b.String()
}

// LyricVideo builds the image-to-video prompt continuing from cover art.
func (promptBuilder) LyricVideo(title, artist, excerpt string, style enums.ImageStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Starting from the cover art of the song \"%s\" by %s, generate a music video.\n\n", title, artist)
	fmt.Fprintf(&b, "Lyrics excerpt: %s\n\n", excerpt)
	b.WriteString("Requirements:\n")
	b.WriteString("1. Reflect the mood and emotion of the lyrics\n")
	b.WriteString("2. Smooth, natural motion with a sense of rhythm\n")
	fmt.Fprintf(&b, "3. Style: %s\n", styleTextFor(style))
	b.WriteString("4. Suitable for use as a music MV\n")
	b.WriteString("5. Pacing should follow the beat of the music")
	return b.String()
}

// TextToVideo builds the direct text-to-video prompt, no source image.
func (promptBuilder) TextToVideo(title, artist, excerpt string, style enums.ImageStyle, mood string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a music MV for the song \"%s\" by %s.\n\n", title, artist)
	fmt.Fprintf(&b, "Lyrics:\n%s\n\n", excerpt)
	b.WriteString("Requirements:\n")
	b.WriteString("1. Fully express the mood and emotion of the lyrics\n")
	b.WriteString("2. Smooth, dynamic visuals with a sense of rhythm\n")
	fmt.Fprintf(&b, "3. Style: %s, mood: %s\n", styleTextFor(style), mood)
	b.WriteString("4. Suitable for use as a music MV\n")
	b.WriteString("5. Pacing should follow the beat of the music\n")
	b.WriteString("6. Rich colors with strong visual impact\n")
	b.WriteString("7. A length that loops well")
	return b.String()
}

func styleTextFor(style enums.ImageStyle) string {
	if text, ok := styleText[style]; ok {
		return text
	}
	return styleText[enums.ImageStyleBeautiful]
}

// lyricsExcerpt pulls the slice of the lyrics feeding a prompt: the first
// eight lines for the chorus, four for a verse, otherwise the first 200
// characters.
func lyricsExcerpt(lyrics string, section enums.LyricsSection) string {
	if lyrics == "" {
		return ""
	}
	lines := strings.Split(lyrics, "\n")
	switch section {
	case enums.LyricsSectionChorus:
		return joinAtMost(lines, chorusLineCount)
	case enums.LyricsSectionVerse:
		return joinAtMost(lines, verseLineCount)
	default:
		runes := []rune(lyrics)
		if len(runes) > excerptMaxRunes {
			return string(runes[:excerptMaxRunes])
		}
		return lyrics
	}
}

func joinAtMost(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
