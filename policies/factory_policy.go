package policies

import "strings"

// Special operation markers for the factory (production) surface
const (
	SpecialJobMetrics      = "__job_metrics__"
	SpecialMachineData     = "__machine_data__"
	SpecialProductionSteps = "__production_steps__"
	SpecialInvoice         = "__invoice__"
	SpecialStatus          = "__status__"
)

var factoryGroups = map[string]fieldSet{
	"job_metrics":      newFieldSet(SpecialJobMetrics),
	"machine_data":     newFieldSet(SpecialMachineData),
	"production_steps": newFieldSet(SpecialProductionSteps),
	"invoice":          newFieldSet(SpecialInvoice),
	"status":           newFieldSet(SpecialStatus, "produced_quantity", "peak_quantity"),
}

// factoryRoleGroups controls which production groups each role may edit.
// Read access is not gated here.
var factoryRoleGroups = map[Role]map[string]struct{}{
	RoleAdmin:             {"job_metrics": {}, "machine_data": {}, "production_steps": {}, "invoice": {}, "status": {}},
	RoleOrderManager:      {"status": {}},
	RoleDesigner:          {}, // view-only
	RoleFactorySupervisor: {"job_metrics": {}, "machine_data": {}, "production_steps": {}, "status": {}},
	RoleInvoiceClerk:      {"invoice": {}},
}

// FactoryPolicy answers which production operations a role may perform
type FactoryPolicy struct {
	Role Role
}

// NewFactoryPolicy builds a policy for a stored role name
func NewFactoryPolicy(roleName string) FactoryPolicy {
	return FactoryPolicy{Role: ParseRole(roleName)}
}

// AllowedGroups returns the production groups the role may edit
func (p FactoryPolicy) AllowedGroups() map[string]struct{} {
	groups, ok := factoryRoleGroups[p.Role]
	if !ok {
		return map[string]struct{}{}
	}
	return groups
}

// AllowsSpecial reports whether the role may perform the operation
// identified by marker
func (p FactoryPolicy) AllowsSpecial(marker string) bool {
	for group := range p.AllowedGroups() {
		if factoryGroups[group].contains(marker) {
			return true
		}
	}
	return false
}

// EditableStatusFields returns the plain status-form fields the role may
// write (produced_quantity, peak_quantity) when it holds the status group
func (p FactoryPolicy) EditableStatusFields() fieldSet {
	fields := fieldSet{}
	for group := range p.AllowedGroups() {
		for f := range factoryGroups[group] {
			if strings.HasPrefix(f, "__") {
				continue
			}
			fields[f] = struct{}{}
		}
	}
	return fields
}

// Permissions summarizes the policy for API responses
func (p FactoryPolicy) Permissions() map[string]bool {
	return map[string]bool{
		"can_edit_job_metrics":      p.AllowsSpecial(SpecialJobMetrics),
		"can_edit_machine_data":     p.AllowsSpecial(SpecialMachineData),
		"can_edit_production_steps": p.AllowsSpecial(SpecialProductionSteps),
		"can_edit_invoice":          p.AllowsSpecial(SpecialInvoice),
		"can_edit_status":           p.AllowsSpecial(SpecialStatus),
	}
}
