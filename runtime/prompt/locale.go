package prompt

import (
	"fmt"
	"strings"
	"time"
)

// Locales supported by the assembler. German is the product default.
const (
	LocaleGerman  = "de"
	LocaleEnglish = "en"
)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// normalizeLocale maps arbitrary locale identifiers ("de-DE", "EN") onto the
// supported set, defaulting to German.
func normalizeLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if strings.HasPrefix(l, "en") {
		return LocaleEnglish
	}
	return LocaleGerman
}

// renderDate renders t in the requested locale. The result is stable within
// one calendar day for a fixed locale.
func renderDate(t time.Time, locale string) string {
	if normalizeLocale(locale) == LocaleEnglish {
		return fmt.Sprintf("%s %d, %d", t.Month().String(), t.Day(), t.Year())
	}
	return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[int(t.Month())-1], t.Year())
}

// dateLine is the line appended to every system text.
func dateLine(t time.Time, locale string) string {
	if normalizeLocale(locale) == LocaleEnglish {
		return "Current date: " + renderDate(t, locale)
	}
	return "Aktuelles Datum: " + renderDate(t, locale)
}

// languageName returns the display name of the locale's language.
func languageName(locale string) string {
	if normalizeLocale(locale) == LocaleEnglish {
		return "English"
	}
	return "Deutsch"
}

// localize applies locale-aware placeholder substitution. Recognized
// placeholders are {{DATUM}}/{{DATE}} (locale-rendered current date) and
// {{SPRACHE}}/{{LANGUAGE}} (language display name).
func localize(text, locale string, now time.Time) string {
	if text == "" {
		return text
	}
	date := renderDate(now, locale)
	lang := languageName(locale)
	r := strings.NewReplacer(
		"{{DATUM}}", date,
		"{{DATE}}", date,
		"{{SPRACHE}}", lang,
		"{{LANGUAGE}}", lang,
	)
	return r.Replace(text)
}
