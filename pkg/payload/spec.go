package payload

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/types"
)

// FormType is the discriminator tag sent as "formType".
type FormType string

const (
	FormCafeteria FormType = "CafeteriaFeedback"
	FormMenu      FormType = "MenuFeedback"
	FormCampus    FormType = "CampusFeedback"
	FormSecurity  FormType = "SecurityReport"
)

// DateLayout is the dd/MM/yyyy layout the counterpart stores dates in.
const DateLayout = "02/01/2006"

// Accepted layouts for date fields in form state.
var inputDateLayouts = []string{DateLayout, "2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// Input is everything a form contributes to its payload.
type Input struct {
	Identity types.Identity

	// Fields is the form state, keyed by form field name.
	Fields map[string]string

	// Media holds the encoded images per slot.
	Media map[string][]string

	// Now is used for date fields left empty. Zero means time.Now.
	Now time.Time
}

func (in *Input) field(key string) string {
	return strings.TrimSpace(in.Fields[key])
}

func (in *Input) now() time.Time {
	if in.Now.IsZero() {
		return time.Now()
	}
	return in.Now
}

// Resolver computes one payload value from the input.
type Resolver func(in *Input) any

// Field is one payload key and how its value is computed.
type Field struct {
	Key   string
	Value Resolver
}

// Condition restricts a rule to forms where Field equals Equals.
type Condition struct {
	Field  string
	Equals string
}

func (c *Condition) holds(in *Input) bool {
	return c == nil || in.field(c.Field) == c.Equals
}

// Rule validates one form field.
type Rule struct {
	Field    string
	Required bool
	Message  string

	// Pattern is checked only when the field is non-empty.
	Pattern        *regexp.Regexp
	PatternMessage string

	When *Condition
}

// MediaSlot describes an image field of the form.
type MediaSlot struct {
	Key      string
	Required bool
	Message  string

	// Max is the number of images the slot holds; more than one makes it a list.
	Max int

	// Signature marks a slot filled from drawn strokes rather than an upload.
	Signature bool
}

func (s MediaSlot) multi() bool { return s.Max > 1 }

// Spec describes one feedback form.
type Spec struct {
	Name     string
	Type     FormType
	Endpoint string
	Fields   []Field
	Rules    []Rule
	Media    []MediaSlot

	// Prefill maps the identity onto the form's initial state.
	Prefill func(id types.Identity) map[string]string
}

// Slot returns the media slot with the given key.
func (s *Spec) Slot(key string) (MediaSlot, bool) {
	for _, m := range s.Media {
		if m.Key == key {
			return m, true
		}
	}
	return MediaSlot{}, false
}

// Validate checks the form state and media counts and reports every violation
// at once, fields first then media slots.
func (s *Spec) Validate(in *Input, mediaCounts map[string]int) error {
	var v []failure.Violation

	for _, r := range s.Rules {
		if !r.When.holds(in) {
			continue
		}
		val := in.field(r.Field)
		switch {
		case val == "" && r.Required:
			v = append(v, failure.Violation{Field: r.Field, Rule: failure.RuleRequired, Message: r.Message})
		case val != "" && r.Pattern != nil && !r.Pattern.MatchString(val):
			v = append(v, failure.Violation{Field: r.Field, Rule: failure.RulePattern, Message: r.PatternMessage})
		}
	}

	for _, m := range s.Media {
		n := mediaCounts[m.Key]
		switch {
		case n == 0 && m.Required:
			v = append(v, failure.Violation{Field: m.Key, Rule: failure.RuleRequired, Message: m.Message})
		case m.Max > 0 && n > m.Max:
			v = append(v, failure.Violation{Field: m.Key, Rule: failure.RuleMaxCount, Message: maxCountMessage(m.Max)})
		}
	}

	if len(v) > 0 {
		return failure.Validation(v)
	}
	return nil
}

func maxCountMessage(n int) string {
	if n == 1 {
		return "Only one image is allowed."
	}
	return "Maximum " + strconv.Itoa(n) + " images allowed"
}

// Assemble builds the payload in field order.
func (s *Spec) Assemble(in *Input) *Payload {
	p := New()
	for _, f := range s.Fields {
		p.Set(f.Key, f.Value(in))
	}
	return p
}

// FromIdentity resolves an identity field, "" when unknown.
func FromIdentity(key string) Resolver {
	return func(in *Input) any { return strings.TrimSpace(in.Identity.Get(key)) }
}

// Form resolves a form field.
func Form(key string) Resolver {
	return func(in *Input) any { return in.field(key) }
}

// FormOr resolves a form field, falling back to def when it is empty.
func FormOr(key, def string) Resolver {
	return func(in *Input) any {
		if v := in.field(key); v != "" {
			return v
		}
		return def
	}
}

// FormIf resolves a form field only while cond holds, "" otherwise.
func FormIf(key string, cond Condition) Resolver {
	return func(in *Input) any {
		if !cond.holds(in) {
			return ""
		}
		return in.field(key)
	}
}

// Const resolves to a fixed value.
func Const(v string) Resolver {
	return func(*Input) any { return v }
}

// FirstName resolves the identity's first name, else the first word of the
// form field nameKey.
func FirstName(nameKey string) Resolver {
	return func(in *Input) any {
		first, _ := DeriveName(in.Identity, in.field(nameKey))
		return first
	}
}

// LastName resolves the identity's last name, else the remaining words of the
// form field nameKey.
func LastName(nameKey string) Resolver {
	return func(in *Input) any {
		_, last := DeriveName(in.Identity, in.field(nameKey))
		return last
	}
}

// DeriveName splits a full name into first and last parts where the identity
// lacks them.
func DeriveName(id types.Identity, fullName string) (string, string) {
	first := strings.TrimSpace(id.FirstName)
	last := strings.TrimSpace(id.LastName)
	if first != "" && last != "" {
		return first, last
	}

	parts := strings.Fields(fullName)
	if first == "" && len(parts) > 0 {
		first, parts = parts[0], parts[1:]
	}
	if last == "" {
		last = strings.Join(parts, " ")
	}
	return first, last
}

// FormDate resolves a date field formatted as DateLayout. The first non-empty
// key wins and is sent as is when no known layout parses it. With every key
// empty the date is today.
func FormDate(keys ...string) Resolver {
	return func(in *Input) any {
		for _, k := range keys {
			raw := in.field(k)
			if raw == "" {
				continue
			}
			for _, layout := range inputDateLayouts {
				if t, err := time.Parse(layout, raw); err == nil {
					return t.Format(DateLayout)
				}
			}
			return raw
		}
		return in.now().Format(DateLayout)
	}
}

// Media resolves a media slot: a string for single slots, a list otherwise.
func Media(slot MediaSlot) Resolver {
	return func(in *Input) any {
		items := in.Media[slot.Key]
		if slot.multi() {
			if items == nil {
				return []string{}
			}
			return items
		}
		if len(items) == 0 {
			return ""
		}
		return items[0]
	}
}
