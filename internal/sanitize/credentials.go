package sanitize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/plan"
	"github.com/rahul/planwright/internal/service"
)

// SecretStore is the part of the secret store the substitution stage needs.
type SecretStore interface {
	Set(key, value string) error
	Lookup(key string) (string, bool)
}

var (
	emailTargetRe    = regexp.MustCompile(`e-?mail`)
	phoneTargetRe    = regexp.MustCompile(`\b(?:phone|mobile|cell)\b`)
	usernameTargetRe = regexp.MustCompile(`username|user\s?name|\buser\b|\blogin\b|\buser\s?id\b|\bhandle\b`)
)

// Classify reports which credential kinds a type-step target asks for.
// A password-like target is only ever KindPassword; identifier targets may
// name several kinds ("Phone number, username, or email"), listed in the
// order their extracted values are preferred.
func Classify(target string) []credentials.Kind {
	t := strings.ToLower(target)
	if credentials.IsPasswordField(t) {
		return []credentials.Kind{credentials.KindPassword}
	}
	var kinds []credentials.Kind
	if usernameTargetRe.MatchString(t) {
		kinds = append(kinds, credentials.KindUsername)
	}
	if emailTargetRe.MatchString(t) {
		kinds = append(kinds, credentials.KindEmail)
	}
	if phoneTargetRe.MatchString(t) {
		kinds = append(kinds, credentials.KindPhone)
	}
	return kinds
}

// SecretKey builds the store key for a credential kind and service, e.g. PASSWORD_INSTAGRAM.
func SecretKey(kind credentials.Kind, svc string) string {
	return strings.ToUpper(string(kind)) + "_" + svc
}

// SubstituteCredentials rewrites the values of type steps that target
// credential fields. Passwords always end up as ${PASSWORD_<SERVICE>}
// placeholders backed by the secret store; identifiers are substituted
// literally unless IndirectIdentifiers is set.
type SubstituteCredentials struct {
	Secrets             SecretStore
	Prompter            credentials.Prompter
	IndirectIdentifiers bool
}

func (*SubstituteCredentials) Name() string { return "credentials" }

func (c *SubstituteCredentials) Apply(ctx context.Context, st *State) error {
	var errs []error
	fallback := st.Name
	if fallback == "" {
		fallback = st.Plan.Task
	}

	for i := range st.Plan.Steps {
		step := &st.Plan.Steps[i]
		if !strings.EqualFold(step.Action, "type") {
			continue
		}
		kinds := Classify(step.Target)
		if len(kinds) == 0 {
			continue
		}
		svc := service.Resolve(fallback, step.Target, st.Name, st.Plan.Task, st.Instruction)

		var err error
		if kinds[0] == credentials.KindPassword {
			err = c.password(ctx, st, step, svc)
		} else {
			err = c.identifier(ctx, st, step, kinds, svc)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i+1, step.Target, err))
		}
	}
	return errors.Join(errs...)
}

func (c *SubstituteCredentials) password(ctx context.Context, st *State, step *plan.Step, svc string) error {
	key := c.passwordKey(st, step.Value, SecretKey(credentials.KindPassword, svc))
	ph := plan.Placeholder(key)

	secret, fromStore, err := c.secretFor(ctx, credentials.KindPassword, key, svc, st.Credential.Password, step.Value)
	step.Value = ph
	if err != nil {
		return err
	}
	if fromStore {
		return nil
	}
	return c.store(st, key, secret)
}

func (c *SubstituteCredentials) identifier(ctx context.Context, st *State, step *plan.Step, kinds []credentials.Kind, svc string) error {
	kind, extracted := kinds[0], ""
	for _, k := range kinds {
		if v := extractedValue(st.Credential, k); v != "" {
			kind, extracted = k, v
			break
		}
	}

	if !c.IndirectIdentifiers {
		if extracted != "" {
			step.Value = extracted
		}
		return nil
	}

	key := SecretKey(kind, svc)
	secret, fromStore, err := c.secretFor(ctx, kind, key, svc, extracted, step.Value)
	step.Value = plan.Placeholder(key)
	if err != nil {
		return err
	}
	if fromStore {
		return nil
	}
	return c.store(st, key, secret)
}

// passwordKey is base unless the step already points at a numbered variant
// (base_2, ...) or carries a second, different literal in the same run. Those
// get the next free numbered key so the first password is not overwritten.
func (c *SubstituteCredentials) passwordKey(st *State, value, base string) string {
	if k, ok := plan.PlaceholderKey(value); ok {
		if n, found := strings.CutPrefix(k, base+"_"); found && isDigits(n) {
			return k
		}
		return base
	}
	if st.Credential.Password != "" || strings.TrimSpace(value) == "" || c.Secrets == nil {
		return base
	}
	key := base
	for n := 2; slices.Contains(st.Stored, key); n++ {
		if v, _ := c.Secrets.Lookup(key); v == value {
			break
		}
		key = fmt.Sprintf("%s_%d", base, n)
	}
	return key
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// secretFor picks the real value: extracted from the instruction, then the
// step's literal value, then an existing store entry, then the prompter.
func (c *SubstituteCredentials) secretFor(ctx context.Context, kind credentials.Kind, key, svc, extracted, current string) (value string, fromStore bool, err error) {
	if extracted != "" {
		return extracted, false, nil
	}
	if strings.TrimSpace(current) != "" && !plan.IsPlaceholder(current) {
		return current, false, nil
	}
	if c.Secrets != nil {
		if v, ok := c.Secrets.Lookup(key); ok && v != "" {
			return v, true, nil
		}
	}
	if c.Prompter == nil {
		return "", false, fmt.Errorf("%w: %s for %s", credentials.ErrMissingCredential, kind, svc)
	}
	v, err := c.Prompter.Prompt(ctx, credentials.Request{Kind: kind, Service: svc, Key: key})
	if err != nil {
		return "", false, err
	}
	if v == "" {
		return "", false, fmt.Errorf("%w: empty %s for %s", credentials.ErrMissingCredential, kind, svc)
	}
	return v, false, nil
}

func (c *SubstituteCredentials) store(st *State, key, value string) error {
	if c.Secrets == nil {
		return fmt.Errorf("no secret store configured for %s", key)
	}
	if err := c.Secrets.Set(key, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	st.Stored = append(st.Stored, key)
	return nil
}

func extractedValue(c credentials.Credential, k credentials.Kind) string {
	switch k {
	case credentials.KindEmail:
		return c.Email()
	case credentials.KindPhone:
		return c.Phone()
	case credentials.KindUsername:
		return c.Username()
	}
	return ""
}
