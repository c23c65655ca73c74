package stories

import (
	"fmt"
	"strings"

	"github.com/sulafhq/sulaf-backend/internal/types"
)

// BuildInstruction assembles the writing instruction sent to the language
// model. The output is Arabic regardless of the target story language; the
// requested language is named inside it.
func BuildInstruction(prompt, genre, length, language string) string {
	var b strings.Builder
	b.WriteString("أنت كاتب عربي محترف. اكتب ")
	b.WriteString(lengthLabel(length))
	b.WriteString("\nباللغة ")
	b.WriteString(languageLabel(language))
	b.WriteString(".\n")
	fmt.Fprintf(&b, "النوع: %s\n", genre)
	fmt.Fprintf(&b, "الفكرة: %s\n\n", prompt)
	b.WriteString("المتطلبات:\n")
	b.WriteString("1. اكتب باللغة العربية الفصحى أو العامية حسب السياق\n")
	b.WriteString("2. أضف شخصيات متطورة\n")
	b.WriteString("3. أضف حوارات طبيعية\n")
	b.WriteString("4. أضف عنصر التشويق\n")
	b.WriteString("5. النهاية يجب أن تكون مرضية\n\n")
	b.WriteString("ابدأ الكتابة مباشرة:")
	return b.String()
}

func lengthLabel(length string) string {
	switch length {
	case types.StoryLengthShort:
		return "قصة قصيرة"
	case types.StoryLengthLong:
		return "رواية طويلة"
	default:
		return "رواية متوسطة"
	}
}

func languageLabel(language string) string {
	if language == "" || language == "ar" {
		return "العربية"
	}
	return language
}

// IllustrationPrompt turns an excerpt of the story into a DALL-E prompt for
// one scene illustration.
func IllustrationPrompt(excerpt string) string {
	return "رسم توضيحي لمشهد من قصة عربية: " + excerpt
}

// Excerpts splits the story into up to n scene excerpts, one per
// illustration, cutting on paragraph boundaries where possible.
func Excerpts(story string, n, maxRunes int) []string {
	if n <= 0 {
		return nil
	}
	paragraphs := strings.Split(story, "\n\n")
	var out []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		runes := []rune(p)
		if len(runes) > maxRunes {
			p = string(runes[:maxRunes])
		}
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	return out
}
