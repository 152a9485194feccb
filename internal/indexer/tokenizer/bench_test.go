package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short":  "Show line numbers",
	"markup": `<html><head><title>Editor</title></head><body>Use <b>soft wraps</b> for long lines</body></html>`,
	"long":   strings.Repeat("Strip trailing spaces on save and ensure every line ends with a line break. ", 20),
}

func BenchmarkStemmedWords(b *testing.B) {
	tok := New(DefaultStopWords(), SnowballStem)
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.StemmedWords(text)
			}
		})
	}
}

func BenchmarkSnowballStem(b *testing.B) {
	words := []string{"numbers", "spacing", "ligatures", "breadcrumbs", "indentation"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = SnowballStem(words[i%len(words)])
	}
}
