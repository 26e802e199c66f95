package payload

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/types"
)

// Endpoints of the collection service, relative to its base URL.
const (
	EndpointFeedback = "/form-submission/add-info"
	EndpointCampus   = "/campus-form/add-info"
	EndpointSecurity = "/security-form/add-info"
)

// MaxIncidentImages is how many photos a security report may attach.
const MaxIncidentImages = 10

var ErrUnknownForm = errors.New("unknown form")

var (
	contact10to15 = regexp.MustCompile(`^\d{10,15}$`)
	mobile10      = regexp.MustCompile(`^\d{10}$`)

	whenStaff     = &Condition{Field: "visitorType", Equals: types.RoleStaff}
	whenUserStaff = &Condition{Field: "userType", Equals: types.RoleStaff}
)

var (
	Cafeteria = cafeteria()
	Menu      = menu()
	Campus    = campus()
	Security  = security()
)

var registry = []*Spec{Cafeteria, Menu, Campus, Security}

// Forms returns every registered form in display order.
func Forms() []*Spec {
	return append([]*Spec(nil), registry...)
}

// Lookup finds a form by short name ("cafeteria") or form type ("CafeteriaFeedback").
func Lookup(name string) (*Spec, error) {
	for _, s := range registry {
		if strings.EqualFold(name, s.Name) || strings.EqualFold(name, string(s.Type)) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownForm, name)
}

func contactRule() Rule {
	return Rule{
		Field:          "contact",
		Required:       true,
		Message:        "Contact number is required.",
		Pattern:        contact10to15,
		PatternMessage: "Contact number must be 10–15 digits.",
	}
}

func mobileRule() Rule {
	return Rule{
		Field:          "mobileNumber",
		Required:       true,
		Message:        "Mobile number is required.",
		Pattern:        mobile10,
		PatternMessage: "Mobile number must be 10 digits.",
	}
}

func selfieSlot(key string) MediaSlot {
	return MediaSlot{Key: key, Required: true, Max: 1, Message: "A selfie is required."}
}

func signatureSlot(required bool) MediaSlot {
	return MediaSlot{Key: "signature", Required: required, Max: 1, Signature: true, Message: "Please add your signature."}
}

// feedbackPrefill fills the cafeteria and menu forms.
func feedbackPrefill(id types.Identity) map[string]string {
	out := map[string]string{}
	if id.HasName() {
		out["name"] = id.FullName()
		out["contact"] = id.CleanContact()
		out["visitorType"] = types.RoleVisitor
		if id.IsInternal() {
			out["visitorType"] = types.RoleStaff
		}
	}
	if id.IsInternal() {
		out["idNumber"] = id.EmployeeID
	}
	return out
}

func feedbackFields(t FormType, dated bool, selfie, signature MediaSlot) []Field {
	fields := []Field{
		{"firstName", FirstName("name")},
		{"lastName", LastName("name")},
		{"email", FromIdentity("email")},
		{"contact", Form("contact")},
		{"gender", FromIdentity("gender")},
		{"employeeStatus", FromIdentity("employeeStatus")},
		{"employeeType", FromIdentity("employeeType")},
		{"employeeId", FromIdentity("employeeId")},
		{"eventName", Form("eventName")},
	}
	if dated {
		fields = append(fields, Field{"eventDate", FormDate("eventDate")})
	}
	return append(fields,
		Field{"visitorType", Form("visitorType")},
		Field{"idNumber", FormIf("idNumber", *whenStaff)},
		Field{"feedback", Form("feedback")},
		Field{"formType", Const(string(t))},
		Field{selfie.Key, Media(selfie)},
		Field{signature.Key, Media(signature)},
	)
}

// cafeteria is the quick feedback form: name, contact and a selfie suffice.
func cafeteria() *Spec {
	selfie, sig := selfieSlot("selfie"), signatureSlot(false)
	return &Spec{
		Name:     "cafeteria",
		Type:     FormCafeteria,
		Endpoint: EndpointFeedback,
		Fields:   feedbackFields(FormCafeteria, false, selfie, sig),
		Rules: []Rule{
			{Field: "name", Required: true, Message: "Name is required."},
			contactRule(),
			{Field: "idNumber", Required: true, Message: "ID Number is required for staff.", When: whenStaff},
		},
		Media:   []MediaSlot{selfie, sig},
		Prefill: feedbackPrefill,
	}
}

func menu() *Spec {
	selfie, sig := selfieSlot("selfie"), signatureSlot(true)
	return &Spec{
		Name:     "menu",
		Type:     FormMenu,
		Endpoint: EndpointFeedback,
		Fields:   feedbackFields(FormMenu, true, selfie, sig),
		Rules: []Rule{
			{Field: "eventName", Required: true, Message: "Event Name is required."},
			{Field: "name", Required: true, Message: "Name is required."},
			contactRule(),
			{Field: "visitorType", Required: true, Message: "Visitor/Staff status is required."},
			{Field: "idNumber", Required: true, Message: "ID Number is required for staff.", When: whenStaff},
		},
		Media:   []MediaSlot{selfie, sig},
		Prefill: feedbackPrefill,
	}
}

func campus() *Spec {
	selfie, sig := selfieSlot("selfieImage"), signatureSlot(true)
	return &Spec{
		Name:     "campus",
		Type:     FormCampus,
		Endpoint: EndpointCampus,
		Fields: append(reportIdentityFields(),
			Field{"selectionType", FormOr("selectionType", "event")},
			Field{"eventName", Form("eventName")},
			Field{"visitDate", FormDate("visitDate", "eventDate")},
			Field{"name", Form("name")},
			Field{"mobileNumber", Form("mobileNumber")},
			Field{"userType", Form("userType")},
			Field{"staffId", Form("staffId")},
			Field{"feedback", Form("feedback")},
			Field{"formType", Const(string(FormCampus))},
			Field{sig.Key, Media(sig)},
			Field{selfie.Key, Media(selfie)},
		),
		Rules: []Rule{
			{Field: "eventName", Required: true, Message: "Event Name is required."},
			{Field: "name", Required: true, Message: "Name is required."},
			mobileRule(),
			{Field: "userType", Required: true, Message: "Visitor/Staff status is required."},
			{Field: "staffId", Required: true, Message: "Staff ID is required for staff members.", When: whenUserStaff},
			{Field: "feedback", Required: true, Message: "Feedback is required."},
		},
		Media: []MediaSlot{selfie, sig},
		Prefill: func(id types.Identity) map[string]string {
			out := map[string]string{"selectionType": "event"}
			if !id.HasName() {
				return out
			}
			out["name"] = id.FullName()
			out["mobileNumber"] = id.CleanContact()
			out["userType"] = id.Role()
			out["staffId"] = ""
			if id.IsInternal() {
				out["staffId"] = id.EmployeeID
			}
			return out
		},
	}
}

func security() *Spec {
	images := MediaSlot{
		Key:      "images",
		Required: true,
		Max:      MaxIncidentImages,
		Message:  "At least one incident image is required.",
	}
	sig := signatureSlot(true)
	return &Spec{
		Name:     "security",
		Type:     FormSecurity,
		Endpoint: EndpointSecurity,
		Fields: append(reportIdentityFields(),
			Field{"employeeName", Form("employeeName")},
			Field{"name", Form("name")},
			Field{"mobileNumber", Form("mobileNumber")},
			Field{"staffId", Form("staffId")},
			Field{"verification", Form("verification")},
			Field{"incidentReport", Form("incidentReport")},
			Field{"formType", Const(string(FormSecurity))},
			Field{sig.Key, Media(sig)},
			Field{images.Key, Media(images)},
		),
		Rules: []Rule{
			{Field: "employeeName", Required: true, Message: "Employee Name is required."},
			{Field: "name", Required: true, Message: "Name is required."},
			mobileRule(),
			{Field: "staffId", Required: true, Message: "Staff ID is required."},
			{Field: "verification", Required: true, Message: "Verification is required."},
			{Field: "incidentReport", Required: true, Message: "Incident report is required."},
		},
		Media: []MediaSlot{images, sig},
		Prefill: func(id types.Identity) map[string]string {
			if !id.HasName() {
				return map[string]string{}
			}
			return map[string]string{
				"employeeName": id.FullName(),
				"name":         id.FullName(),
				"mobileNumber": id.CleanContact(),
				"staffId":      id.EmployeeID,
			}
		},
	}
}

// reportIdentityFields is the identity block of the campus and security forms.
func reportIdentityFields() []Field {
	return []Field{
		{"firstName", FirstName("name")},
		{"lastName", LastName("name")},
		{"gender", FromIdentity("gender")},
		{"email", FromIdentity("email")},
		{"contact", FromIdentity("contact")},
		{"employeeId", FromIdentity("employeeId")},
		{"employeeType", FromIdentity("employeeType")},
		{"employeeStatus", FromIdentity("employeeStatus")},
	}
}

// Prefill returns the initial form state for id, with any contact value unwrapped.
func Prefill(spec *Spec, id types.Identity) map[string]string {
	if spec.Prefill == nil {
		return map[string]string{}
	}
	return spec.Prefill(id)
}
