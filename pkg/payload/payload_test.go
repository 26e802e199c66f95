package payload

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadOrderAndEscaping(t *testing.T) {
	p := New()
	p.Set("zeta", "<b>")
	p.Set("alpha", 1)
	p.Set("list", []string{})
	p.Set("missing", nil)
	p.Set("zeta", "a&b")

	b, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"a&b","alpha":1,"list":[],"missing":""}`, string(b))
	assert.Equal(t, []string{"zeta", "alpha", "list", "missing"}, p.Keys())
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, "a&b", p.String("zeta"))
}

func TestLookup(t *testing.T) {
	s, err := Lookup("cafeteria")
	require.NoError(t, err)
	assert.Equal(t, FormCafeteria, s.Type)

	s, err = Lookup("SecurityReport")
	require.NoError(t, err)
	assert.Equal(t, EndpointSecurity, s.Endpoint)

	_, err = Lookup("library")
	assert.True(t, errors.Is(err, ErrUnknownForm))

	assert.Len(t, Forms(), 4)
}

func TestCafeteriaScenario(t *testing.T) {
	in := &Input{
		Fields: map[string]string{"name": "Jane Doe", "contact": "9876543210", "feedback": "Great food"},
		Media:  map[string][]string{"selfie": {"data:image/jpeg;base64,AAAA"}},
	}

	require.NoError(t, Cafeteria.Validate(in, map[string]int{"selfie": 1}))

	p := Cafeteria.Assemble(in)
	assert.Equal(t, "Jane", p.String("firstName"))
	assert.Equal(t, "Doe", p.String("lastName"))
	assert.Equal(t, "9876543210", p.String("contact"))
	assert.Equal(t, "Great food", p.String("feedback"))
	assert.Equal(t, "CafeteriaFeedback", p.String("formType"))
	assert.Equal(t, "data:image/jpeg;base64,AAAA", p.String("selfie"))
	assert.Equal(t, "", p.String("signature"))
	assert.Equal(t, "", p.String("email"))

	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		assert.NotNil(t, v, k)
	}
	assert.Equal(t, []string{
		"firstName", "lastName", "email", "contact", "gender", "employeeStatus", "employeeType",
		"employeeId", "eventName", "visitorType", "idNumber", "feedback", "formType", "selfie", "signature",
	}, p.Keys())
}

func TestConditionalRequiredness(t *testing.T) {
	counts := map[string]int{"selfie": 1}
	base := map[string]string{"name": "Jane Doe", "contact": "9876543210", "idNumber": ""}

	staff := &Input{Fields: with(base, "visitorType", types.RoleStaff)}
	err := Cafeteria.Validate(staff, counts)
	require.Error(t, err)
	assert.Equal(t, []string{"idNumber"}, failure.Fields(err))

	visitor := &Input{Fields: with(base, "visitorType", types.RoleVisitor)}
	assert.NoError(t, Cafeteria.Validate(visitor, counts))
}

func TestIDNumberDroppedForVisitors(t *testing.T) {
	in := &Input{Fields: map[string]string{"name": "A B", "visitorType": types.RoleVisitor, "idNumber": "K123"}}
	assert.Equal(t, "", Cafeteria.Assemble(in).String("idNumber"))

	in.Fields["visitorType"] = types.RoleStaff
	assert.Equal(t, "K123", Cafeteria.Assemble(in).String("idNumber"))
}

func TestValidateCollectsAllViolations(t *testing.T) {
	in := &Input{Fields: map[string]string{"contact": "12345", "mobileNumber": "abc"}}

	err := Menu.Validate(in, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrValidation))
	assert.Equal(t, []string{"eventName", "name", "contact", "visitorType", "selfie", "signature"}, failure.Fields(err))

	var fe *failure.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, failure.RulePattern, fe.Violations[2].Rule)
	assert.Equal(t, "Contact number must be 10–15 digits.", fe.Violations[2].Message)
}

func TestSecurityImages(t *testing.T) {
	fields := map[string]string{
		"employeeName": "Jane Doe", "name": "Jane Doe", "mobileNumber": "9876543210",
		"staffId": "K1", "verification": "ID card", "incidentReport": "Door left open",
	}
	in := &Input{Fields: fields}

	err := Security.Validate(in, map[string]int{"images": 11, "signature": 1})
	assert.Equal(t, []string{"images"}, failure.Fields(err))

	err = Security.Validate(in, map[string]int{"signature": 1})
	assert.Equal(t, []string{"images"}, failure.Fields(err))

	assert.NoError(t, Security.Validate(in, map[string]int{"images": 3, "signature": 1}))

	p := Security.Assemble(in)
	v, ok := p.Get("images")
	require.True(t, ok)
	assert.Equal(t, []string{}, v)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"images":[]`)
	assert.Contains(t, string(b), `"formType":"SecurityReport"`)
}

func TestCampusDatesAndDefaults(t *testing.T) {
	now := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

	in := &Input{Fields: map[string]string{"eventDate": "2025-01-31"}, Now: now}
	p := Campus.Assemble(in)
	assert.Equal(t, "31/01/2025", p.String("visitDate"))
	assert.Equal(t, "event", p.String("selectionType"))

	p = Campus.Assemble(&Input{Now: now})
	assert.Equal(t, "07/03/2025", p.String("visitDate"))

	p = Menu.Assemble(&Input{Fields: map[string]string{"eventDate": "07/03/2025"}})
	assert.Equal(t, "07/03/2025", p.String("eventDate"))

	p = Menu.Assemble(&Input{Fields: map[string]string{"eventDate": "next friday"}})
	assert.Equal(t, "next friday", p.String("eventDate"))
}

func TestCampusStaffID(t *testing.T) {
	fields := map[string]string{
		"eventName": "Open day", "name": "Jane Doe", "mobileNumber": "9876543210",
		"userType": types.RoleStaff, "feedback": "Well organised",
	}
	err := Campus.Validate(&Input{Fields: fields}, map[string]int{"selfieImage": 1, "signature": 1})
	assert.Equal(t, []string{"staffId"}, failure.Fields(err))
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		id        types.Identity
		full      string
		wantFirst string
		wantLast  string
	}{
		{types.Identity{}, "Jane Doe", "Jane", "Doe"},
		{types.Identity{}, "  Mary Ann  van Dyke ", "Mary", "Ann van Dyke"},
		{types.Identity{}, "Cher", "Cher", ""},
		{types.Identity{FirstName: "Jo"}, "Jane Doe", "Jo", "Doe"},
		{types.Identity{FirstName: "Jo", LastName: "March"}, "Jane Doe", "Jo", "March"},
		{types.Identity{LastName: "March"}, "Jane Doe", "Jane", "March"},
		{types.Identity{}, "", "", ""},
	}
	for _, tt := range tests {
		first, last := DeriveName(tt.id, tt.full)
		assert.Equal(t, tt.wantFirst, first, tt.full)
		assert.Equal(t, tt.wantLast, last, tt.full)
	}
}

func TestPrefill(t *testing.T) {
	staff := types.Identity{
		FirstName: "Jane", LastName: "Doe", Contact: `{"contact":"9876543210"}`,
		EmployeeStatus: types.StatusEmployee, EmployeeType: types.EmployeeTypeInternal, EmployeeID: "K42",
	}

	got := Prefill(Cafeteria, staff)
	assert.Equal(t, map[string]string{
		"name": "Jane Doe", "contact": "9876543210", "visitorType": types.RoleStaff, "idNumber": "K42",
	}, got)

	got = Prefill(Campus, staff)
	assert.Equal(t, types.RoleStaff, got["userType"])
	assert.Equal(t, "K42", got["staffId"])

	visitor := types.Identity{FirstName: "Sam", Contact: "9000000000", EmployeeStatus: types.StatusVisitors}
	got = Prefill(Campus, visitor)
	assert.Equal(t, types.RoleVisitor, got["userType"])
	assert.Equal(t, "", got["staffId"])

	got = Prefill(Security, staff)
	assert.Equal(t, "Jane Doe", got["employeeName"])
	assert.Equal(t, "K42", got["staffId"])

	assert.Empty(t, Prefill(Menu, types.Identity{}))
}

func with(m map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for key, val := range m {
		out[key] = val
	}
	out[k] = v
	return out
}
