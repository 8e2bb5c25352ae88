// Package language tags chapter and company titles with a BCP 47 language
// code for the metadata records. The exchange publishes one Chinese and
// one English edition per document; only these two need distinguishing.
package language

import (
	"github.com/pemistahl/lingua-go"
)

// Detector wraps a lingua detector restricted to the two editions.
type Detector struct {
	inner lingua.LanguageDetector
}

// New builds a detector. Construction loads language models and is
// relatively expensive; share one instance per run.
func New() *Detector {
	return &Detector{
		inner: lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Chinese, lingua.English).
			Build(),
	}
}

// Tag returns "zh-CN", "en", or "" when the text carries no usable signal.
func (d *Detector) Tag(text string) string {
	if text == "" {
		return ""
	}
	lang, ok := d.inner.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	switch lang {
	case lingua.Chinese:
		return "zh-CN"
	case lingua.English:
		return "en"
	default:
		return ""
	}
}
