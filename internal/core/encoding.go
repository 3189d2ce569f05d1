package core

import (
	"log/slog"
	"unicode/utf8"

	"github.com/saintfish/chardet"
)

// encodingSampleSize is how many leading bytes the detector looks at.
const encodingSampleSize = 4096

// DefaultEncoding is used when detection is inconclusive.
const DefaultEncoding = "UTF-8"

// LowConfidenceEncoding is used for non-UTF-8 samples that chardet cannot
// place with at least minConfidence. Short samples otherwise land on
// whichever single-byte table happens to match one n-gram.
const LowConfidenceEncoding = "ISO-8859-1"

// minConfidence is the chardet score (1-100) a guess needs to be trusted.
const minConfidence = 50

// Detector guesses the character encoding of CSV files.
type Detector struct {
	text   *chardet.Detector
	logger *slog.Logger
}

// NewDetector returns a detector that reports its guesses to logger.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		text:   chardet.NewTextDetector(),
		logger: logger,
	}
}

// Detect returns the best-guess IANA encoding name for data, looking only at
// its first encodingSampleSize bytes. A sample that is already valid UTF-8 is
// reported as UTF-8 without consulting chardet, which tends to call short
// ASCII-heavy samples ISO-8859-1.
func (d *Detector) Detect(data []byte) string {
	sample := data
	truncated := len(sample) > encodingSampleSize
	if truncated {
		sample = sample[:encodingSampleSize]
	}

	name := d.guess(sample, truncated)
	d.logger.Info("detected encoding", "encoding", name, "sample_bytes", len(sample))
	return name
}

func (d *Detector) guess(sample []byte, truncated bool) string {
	if len(sample) == 0 {
		return DefaultEncoding
	}
	if validUTF8Sample(sample, truncated) {
		return DefaultEncoding
	}
	res, err := d.text.DetectBest(sample)
	if err != nil || res == nil || res.Charset == "" {
		return DefaultEncoding
	}
	if res.Confidence < minConfidence {
		d.logger.Debug("low confidence encoding guess",
			"encoding", res.Charset,
			"confidence", res.Confidence,
		)
		return LowConfidenceEncoding
	}
	return res.Charset
}

// validUTF8Sample reports whether sample is valid UTF-8, ignoring a rune that
// was cut in half by truncation.
func validUTF8Sample(sample []byte, truncated bool) bool {
	if truncated {
		for i := len(sample) - 1; i >= 0 && i >= len(sample)-utf8.UTFMax; i-- {
			if utf8.RuneStart(sample[i]) {
				if !utf8.FullRune(sample[i:]) {
					sample = sample[:i]
				}
				break
			}
		}
	}
	return utf8.Valid(sample)
}
