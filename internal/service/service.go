// Package service maps free text onto the recognized service vocabulary used
// to namespace secret keys (PASSWORD_<SERVICE>).
package service

import (
	"net/url"
	"regexp"
	"strings"
)

// General is the suffix used when nothing more specific is known.
const General = "GENERAL"

type entry struct {
	name    string // lower-case vocabulary word
	display string
	home    string
	hosts   []string
}

var known = []entry{
	{"instagram", "Instagram", "https://www.instagram.com", []string{"instagram.com"}},
	{"facebook", "Facebook", "https://www.facebook.com", []string{"facebook.com", "fb.com"}},
	{"youtube", "YouTube", "https://www.youtube.com", []string{"youtube.com", "youtu.be"}},
	{"twitter", "Twitter", "https://twitter.com", []string{"twitter.com", "x.com"}},
	{"gmail", "Gmail", "https://mail.google.com", []string{"mail.google.com", "gmail.com"}},
	{"linkedin", "LinkedIn", "https://www.linkedin.com", []string{"linkedin.com"}},
	{"tiktok", "TikTok", "https://www.tiktok.com", []string{"tiktok.com"}},
}

var (
	vocabRe   = regexp.MustCompile(`(?i)(instagram|facebook|youtube|twitter|gmail|linkedin|tiktok)`)
	nonKeyRe  = regexp.MustCompile(`[^A-Z0-9]+`)
	wordRe    = regexp.MustCompile(`(?i)\b(instagram|facebook|youtube|twitter|gmail|linkedin|tiktok)\b`)
	byName    = map[string]entry{}
	byDisplay = map[string]entry{}
)

func init() {
	for _, e := range known {
		byName[e.name] = e
		byDisplay[e.display] = e
	}
}

// Detect returns the first vocabulary service mentioned in text, upper-cased.
func Detect(text string) (string, bool) {
	m := vocabRe.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

// Resolve returns the first service detected across texts, in order. Without a
// match the fallback is turned into a key suffix, or General when it is empty.
// The same inputs always yield the same suffix, so credentials are reused
// across plans that target the same service.
func Resolve(fallback string, texts ...string) string {
	for _, t := range texts {
		if s, ok := Detect(t); ok {
			return s
		}
	}
	if s := KeySuffix(fallback); s != "" {
		return s
	}
	return General
}

// KeySuffix upper-cases s and replaces anything outside [A-Z0-9] with '_'.
func KeySuffix(s string) string {
	return strings.Trim(nonKeyRe.ReplaceAllString(strings.ToUpper(s), "_"), "_")
}

// FromURL returns the canonical display name for a known service URL.
func FromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, e := range known {
		for _, h := range e.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return e.display, true
			}
		}
	}
	return "", false
}

// CanonicalizeWords rewrites bare service mentions to their display names,
// e.g. "open instagram" -> "open Instagram".
func CanonicalizeWords(text string) string {
	return wordRe.ReplaceAllStringFunc(text, func(w string) string {
		return byName[strings.ToLower(w)].display
	})
}

// HomeURL returns the landing page of a service given its vocabulary word,
// display name or key suffix.
func HomeURL(name string) (string, bool) {
	if e, ok := byDisplay[name]; ok {
		return e.home, true
	}
	if e, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return e.home, true
	}
	return "", false
}
