package policies

// Role is the closed set of role names the policies dispatch on.
// Unknown role strings parse to RoleUnknown, which maps to no permissions.
type Role string

const (
	RoleUnknown           Role = ""
	RoleAdmin             Role = "Admin"
	RoleOrderManager      Role = "OrderManager"
	RoleDesigner          Role = "Designer"
	RoleFactorySupervisor Role = "FactorySupervisor"
	RoleInvoiceClerk      Role = "InvoiceClerk"
)

// ParseRole maps a stored role name onto the closed Role set
func ParseRole(name string) Role {
	switch Role(name) {
	case RoleAdmin, RoleOrderManager, RoleDesigner, RoleFactorySupervisor, RoleInvoiceClerk:
		return Role(name)
	}
	return RoleUnknown
}

// groupALL is the sentinel group granting write access to every field
const groupALL = "ALL"

type fieldSet map[string]struct{}

func newFieldSet(fields ...string) fieldSet {
	s := make(fieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

func (s fieldSet) contains(field string) bool {
	_, ok := s[field]
	return ok
}
