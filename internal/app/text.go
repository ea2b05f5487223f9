package app

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces  = regexp.MustCompile(`\s+`)
	reHyphens = regexp.MustCompile(`-+`)

	// đ ne se décompose pas en NFD.
	vietReplacer = strings.NewReplacer("đ", "d", "Đ", "D")
)

// NormalizeKeyword nettoie une saisie de recherche: NFC, espaces compactés.
func NormalizeKeyword(s string) string {
	s = norm.NFC.String(s)
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// FoldDiacritics retire les accents (NFD -> suppression Mn -> NFC) et passe en minuscules.
func FoldDiacritics(s string) string {
	s = strings.ToLower(vietReplacer.Replace(s))
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(tr, s); err == nil {
		s = out
	}
	return s
}

// Slugify calcule le slug PhimAPI probable d'un titre ("Người Phán Xử" -> "nguoi-phan-xu").
func Slugify(title string) string {
	s := FoldDiacritics(strings.TrimSpace(title))
	if s == "" {
		return ""
	}
	b := strings.Builder{}
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == ' ' || ch == '-' || ch == '\'' || ch == ':' || ch == '/' || ch == '&' || ch == '+':
			b.WriteRune('-')
		}
	}
	s = reHyphens.ReplaceAllString(b.String(), "-")
	return strings.Trim(s, "-")
}
