package lyrics

import "strings"

// hallucinationPhrases lists boilerplate the transcription model is
// known to produce on near-silent or music-only audio, per language.
// A line containing any phrase for its language is dropped.
var hallucinationPhrases = map[string][]string{
	"en": {
		"thanks for watching",
		"thank you for watching",
		"please subscribe",
		"like and subscribe",
		"see you in the next video",
		"subtitles by",
		"captions by",
		"copyright",
		"www.",
	},
	"ja": {
		"ご視聴ありがとうございました",
		"チャンネル登録",
	},
	"ko": {
		"시청해주셔서 감사합니다",
		"구독",
	},
	"es": {
		"gracias por ver",
		"suscríbete",
	},
	"de": {
		"danke fürs zuschauen",
		"untertitel",
	},
	"fr": {
		"merci d'avoir regardé",
		"abonnez-vous",
	},
}

func isHallucination(text string, language string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return true
	}

	phrases := hallucinationPhrases[language]
	if language != "en" {
		phrases = append(phrases, hallucinationPhrases["en"]...)
	}

	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	return false
}
