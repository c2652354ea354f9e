package imagecache

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DerivePath maps an APOD title and its source URL to the file path used in
// the cache directory. The extension comes from the URL path; the stem is the
// trimmed title with whitespace runs collapsed to underscores and every rune
// other than letters, numbers, and underscores removed. Numbers include
// superscripts and vulgar fractions such as ² and ½.
//
// Titles made only of punctuation yield a name that is just the extension.
func DerivePath(title, sourceURL, baseDir string) string {
	return filepath.Join(baseDir, fileStem(title)+urlExtension(sourceURL))
}

func fileStem(title string) string {
	joined := strings.Join(strings.Fields(norm.NFC.String(title)), "_")
	var b strings.Builder
	b.Grow(len(joined))
	for _, r := range joined {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func urlExtension(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	return path.Ext(p)
}
