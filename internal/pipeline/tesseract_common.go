package pipeline

// fallbackLanguage is retried when the configured language packs fail.
const fallbackLanguage = "eng"

// defaultPageSegMode is tesseract's "single uniform block of text".
const defaultPageSegMode = 6

func ocrLanguages(languages []string) []string {
	if len(languages) == 0 {
		return []string{"spa", fallbackLanguage}
	}
	return languages
}
