// Package types provides the identity carried from the identification step
// into every feedback form.
package types

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
)

// Employee status values offered by the identification step.
const (
	StatusVisitors     = "Visitors"
	StatusEmployee     = "Employee"
	StatusStudent      = "Student"
	StatusEntrepreneur = "Entrepreneur"
	StatusOthers       = "Others"
)

// Employee types. Only the internal type carries an employee ID.
const (
	EmployeeTypeInternal = "KGISL"
	EmployeeTypeExternal = "External"
)

// Role selector values used by the forms.
const (
	RoleStaff   = "Staff"
	RoleVisitor = "Visitor"
)

var (
	emailPattern   = regexp.MustCompile(`\S+@\S+\.\S+`)
	contactPattern = regexp.MustCompile(`^\d{10}$`)
)

// Identity is who is submitting, as captured before the domain is chosen.
type Identity struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Contact        string `json:"contact"`
	Gender         string `json:"gender"`
	EmployeeStatus string `json:"employeeStatus"`
	EmployeeType   string `json:"employeeType"`
	EmployeeID     string `json:"employeeId"`
}

// FullName joins the first and last names.
func (id Identity) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(id.FirstName) + " " + strings.TrimSpace(id.LastName))
}

// HasName reports whether either name part is set.
func (id Identity) HasName() bool {
	return strings.TrimSpace(id.FirstName) != "" || strings.TrimSpace(id.LastName) != ""
}

// IsInternal reports whether the submitter is an internal employee.
func (id Identity) IsInternal() bool {
	return id.EmployeeType == EmployeeTypeInternal
}

// Role maps the identity onto the forms' Staff/Visitor selector.
func (id Identity) Role() string {
	if id.EmployeeStatus == StatusVisitors || !id.IsInternal() {
		return RoleVisitor
	}
	return RoleStaff
}

// CleanContact returns the contact number, unwrapping a JSON object of the
// form {"contact": "..."} that earlier clients stored in the field.
func (id Identity) CleanContact() string {
	return UnwrapContact(id.Contact)
}

// UnwrapContact returns the "contact" member of a JSON object, or s unchanged.
func UnwrapContact(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return s
	}
	var wrapped struct {
		Contact any `json:"contact"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
		return s
	}
	switch c := wrapped.Contact.(type) {
	case string:
		if c != "" {
			return c
		}
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	}
	return s
}

// Get returns an identity field by its JSON name.
func (id Identity) Get(key string) string {
	switch key {
	case "firstName":
		return id.FirstName
	case "lastName":
		return id.LastName
	case "email":
		return id.Email
	case "contact":
		return id.CleanContact()
	case "gender":
		return id.Gender
	case "employeeStatus":
		return id.EmployeeStatus
	case "employeeType":
		return id.EmployeeType
	case "employeeId":
		return id.EmployeeID
	}
	return ""
}

// Validate applies the identification step rules and reports every failing field.
func (id Identity) Validate() error {
	var v []failure.Violation
	add := func(field, rule, msg string) {
		v = append(v, failure.Violation{Field: field, Rule: rule, Message: msg})
	}

	if id.FirstName == "" {
		add("firstName", failure.RuleRequired, "First Name is required")
	}
	if id.LastName == "" {
		add("lastName", failure.RuleRequired, "Last Name is required")
	}
	if id.Email == "" {
		add("email", failure.RuleRequired, "Email is required")
	} else if !emailPattern.MatchString(id.Email) {
		add("email", failure.RulePattern, "Email address is invalid")
	}
	if id.Contact == "" {
		add("contact", failure.RuleRequired, "Contact number is required")
	} else if !contactPattern.MatchString(id.CleanContact()) {
		add("contact", failure.RulePattern, "Contact number must be 10 digits")
	}
	if id.Gender == "" {
		add("gender", failure.RuleRequired, "Gender is required")
	}
	if id.EmployeeStatus == "" {
		add("employeeStatus", failure.RuleRequired, "Employee Status is required")
	}
	if id.EmployeeStatus == StatusEmployee {
		if id.EmployeeType == "" {
			add("employeeType", failure.RuleRequired, "Employee Type is required")
		}
		if id.IsInternal() && id.EmployeeID == "" {
			add("employeeId", failure.RuleRequired, "Employee ID is required for KGISL employees")
		}
	}

	if len(v) > 0 {
		return failure.Validation(v)
	}
	return nil
}
