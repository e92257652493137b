package quiz

import (
	"fmt"
	"path"
)

// The flipbooks derive narration filenames from the spread being shown.
// Goldilocks numbers its narration files (/0.mp3, /1.mp3, ...) starting at
// page 1; Peter Rabbit letters them (/a.mp3, /b.mp3, ...) starting at page 3.
// Both conventions are fixed by the pre-recorded asset set and must be
// reproduced exactly to stay in sync with the illustrations.

// NarrationFile maps a book page number to its narration asset path.
func NarrationFile(book string, pageNumber int) (string, error) {
	switch book {
	case BookGoldilocks:
		if pageNumber < 1 {
			return "", fmt.Errorf("page number %d out of range for %s", pageNumber, book)
		}
		return fmt.Sprintf("/%d.mp3", (pageNumber-1)/2), nil
	case BookPeter:
		if pageNumber < 3 {
			return "", fmt.Errorf("page number %d out of range for %s", pageNumber, book)
		}
		index := (pageNumber - 3) / 2
		if index > 'z'-'a' {
			return "", fmt.Errorf("page number %d exceeds lettered narration set", pageNumber)
		}
		return fmt.Sprintf("/%c.mp3", rune('a'+index)), nil
	default:
		return "", fmt.Errorf("unknown book %q", book)
	}
}

// InputPromptFile is the cue played when the typed-answer form opens.
const InputPromptFile = "/input_audio.mp3"

// AssetPath resolves an asset reference against the configured static root.
func AssetPath(assetDir string, file string) string {
	if assetDir == "" {
		return file
	}
	return path.Join(assetDir, file)
}
