package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrMissingCredential is returned when no value can be obtained for a credential.
var ErrMissingCredential = errors.New("missing credential")

// Kind classifies a credential field.
type Kind string

const (
	KindUsername Kind = "username"
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindPassword Kind = "password"
)

// Request describes the value a Prompter is asked for.
type Request struct {
	Kind    Kind
	Service string // e.g. INSTAGRAM
	Key     string // secret store key, e.g. PASSWORD_INSTAGRAM
}

// Prompter supplies credentials the instruction and the plan do not contain.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (string, error)
}

// Terminal asks on the controlling terminal. Passwords are read without echo
// when In is a terminal.
type Terminal struct {
	In          *os.File
	Out         io.Writer
	Destination string // shown to the user, e.g. ".env"

	once   sync.Once
	reader *bufio.Reader
}

func NewTerminal(destination string) *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr, Destination: destination}
}

func (t *Terminal) Prompt(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.once.Do(func() { t.reader = bufio.NewReader(t.In) })

	note := ""
	if t.Destination != "" {
		note = "will be saved to " + t.Destination
	}

	fd := int(t.In.Fd())
	if req.Kind == KindPassword && term.IsTerminal(fd) {
		if note != "" {
			note = ", " + note
		}
		fmt.Fprintf(t.Out, "Enter password for %s (input hidden%s): ", req.Service, note)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(t.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return t.result(req, string(b))
	}

	if note != "" {
		note = " (" + note + ")"
	}
	fmt.Fprintf(t.Out, "Enter %s for %s%s: ", req.Kind, req.Service, note)
	line, err := t.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", req.Kind, err)
	}
	return t.result(req, line)
}

func (t *Terminal) result(req Request, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: no %s entered for %s", ErrMissingCredential, req.Kind, req.Service)
	}
	return v, nil
}

// NonInteractive never asks; every request fails with ErrMissingCredential.
type NonInteractive struct{}

func (NonInteractive) Prompt(ctx context.Context, req Request) (string, error) {
	return "", fmt.Errorf("%w: %s for %s", ErrMissingCredential, req.Kind, req.Service)
}

// Static answers from a pre-supplied map. Entries are matched by secret key
// first (PASSWORD_INSTAGRAM), then by kind ("password").
type Static map[string]string

func (s Static) Prompt(ctx context.Context, req Request) (string, error) {
	if v, ok := s[req.Key]; ok && v != "" {
		return v, nil
	}
	if v, ok := s[string(req.Kind)]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s not supplied", ErrMissingCredential, req.Key)
}

// ParseStatic builds a Static prompter from KEY=VALUE pairs.
func ParseStatic(pairs []string) (Static, error) {
	s := Static{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid secret %q, want KEY=VALUE", p)
		}
		s[strings.TrimSpace(k)] = v
	}
	return s, nil
}
