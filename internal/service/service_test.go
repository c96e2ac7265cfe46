package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	assert.Equal(t, "INSTAGRAM", Resolve("login", "Instagram password field"))
	assert.Equal(t, "GMAIL", Resolve("check_mail", "password", "check_mail", "open gmail and log in"))
	assert.Equal(t, "CHECK_MAIL", Resolve("check_mail", "password"))
	assert.Equal(t, General, Resolve("", "password"))
	assert.Equal(t, Resolve("x", "YouTube search"), Resolve("y", "youtube search"))
}

func TestKeySuffix(t *testing.T) {
	assert.Equal(t, "BOOK_A_FLIGHT", KeySuffix("book a-flight"))
	assert.Equal(t, "LOGIN", KeySuffix("__login__"))
	assert.Equal(t, "", KeySuffix("  "))
}

func TestFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.instagram.com/accounts/login": "Instagram",
		"http://m.facebook.com/":                   "Facebook",
		"https://youtu.be/dQw4w9WgXcQ":             "YouTube",
		"https://x.com/home":                       "Twitter",
		"https://mail.google.com/mail/u/0":         "Gmail",
	}
	for in, want := range cases {
		got, ok := FromURL(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := FromURL("https://example.org")
	assert.False(t, ok)
	_, ok = FromURL("not a url")
	assert.False(t, ok)
}

func TestCanonicalizeWords(t *testing.T) {
	assert.Equal(t, "open Instagram then YouTube", CanonicalizeWords("open instagram then youtube"))
	assert.Equal(t, "instagram123", CanonicalizeWords("instagram123"))
	once := CanonicalizeWords("LINKEDIN feed")
	assert.Equal(t, "LinkedIn feed", once)
	assert.Equal(t, once, CanonicalizeWords(once))
}

func TestHomeURL(t *testing.T) {
	u, ok := HomeURL("Instagram")
	assert.True(t, ok)
	assert.Equal(t, "https://www.instagram.com", u)

	u, ok = HomeURL("gmail")
	assert.True(t, ok)
	assert.Equal(t, "https://mail.google.com", u)

	_, ok = HomeURL("<website>")
	assert.False(t, ok)
}
