package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLoginScenario(t *testing.T) {
	c := Extract("Login to instagram with username bob and password Secret123")
	assert.Equal(t, []string{"bob"}, c.Usernames)
	assert.Equal(t, "Secret123", c.Password)
	assert.Empty(t, c.Emails)
	assert.Empty(t, c.Phones)
}

func TestExtractPasswordPhrasings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"open gmail, password is hunter2", "hunter2"},
		{"set the password to 'p@ss word'", "p@ss word"},
		{"password set to abc123, then click login", "abc123"},
		{"pass=xyz and user alice", "xyz"},
		{"pwd: q1w2e3", "q1w2e3"},
		{"the password is: hunter2", "hunter2"},
		{"password: Secret123.", "Secret123"},
		{"my password isabel99", "isabel99"},
		{"password is 'Hunter2!'", "Hunter2!"},
		{"type password first123 then password second456", "second456"},
		{"enter password and username bob", ""},
		{"click the password field", ""},
		{"enter password on the login page", ""},
		{"no secrets here", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Extract(tc.in).Password, "Extract(%q)", tc.in)
	}
}

func TestExtractIdentifiers(t *testing.T) {
	c := Extract(`login as "carol" or user dave, mail carol@example.com or call +91 9876543210 / 08123456789`)
	assert.Equal(t, []string{"carol", "dave"}, c.Usernames)
	assert.Equal(t, "carol", c.Username())
	assert.Equal(t, []string{"carol@example.com"}, c.Emails)
	assert.Equal(t, []string{"+91 9876543210", "08123456789"}, c.Phones)
	assert.Equal(t, "+91 9876543210", c.Phone())
}

func TestExtractRejectsShortOrForeignNumbers(t *testing.T) {
	c := Extract("flight 12345 on 2025 call 5123456789 or 123456789012")
	assert.Empty(t, c.Phones)
}

func TestExtractUsernameFillers(t *testing.T) {
	c := Extract("enter username and password on the login page")
	assert.Empty(t, c.Usernames)
	assert.True(t, c.Empty())
}

func TestIsPasswordField(t *testing.T) {
	for _, target := range []string{"password field", "Passcode", "pwd", "Pass", "passwd input"} {
		assert.True(t, IsPasswordField(target), target)
	}
	for _, target := range []string{"username", "passenger count", "bypass button", "email"} {
		assert.False(t, IsPasswordField(target), target)
	}
}
