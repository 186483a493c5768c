// Package ocr turns uploaded receipt and screenshot images into raw text.
package ocr

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// TextExtractor reads an image file and returns the recognized text.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// Tesseract runs the local tesseract engine through gosseract.
type Tesseract struct {
	Language string
}

var _ TextExtractor = (*Tesseract)(nil)

func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Language: language}
}

// minHeight below which the image is upscaled before recognition. Small
// screenshots OCR poorly at native resolution.
const minHeight = 800

// ExtractText grayscales and, when needed, upscales the image, then runs
// Tesseract on the preprocessed copy.
func (t *Tesseract) ExtractText(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minHeight {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}

	// Preprocessed copy goes to the system temp dir; fall back to the
	// original file if the save fails.
	tmp := path
	if tmpFile, err := os.CreateTemp("", "ocr-*.png"); err == nil {
		tmp = tmpFile.Name()
		tmpFile.Close()
		if err := imaging.Save(gray, tmp); err != nil {
			os.Remove(tmp)
			tmp = path
		}
	}
	if tmp != path {
		defer os.Remove(tmp)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", t.Language, err)
	}
	client.SetImage(tmp)

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return text, nil
}
