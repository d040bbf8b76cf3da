package policies

import "strings"

// Special operation markers for order mutations that are not plain field
// writes (uploads, value rows). Markers never pass through FilterPayload.
const (
	SpecialImages = "__images__"
	SpecialFiles  = "__files__"
	SpecialValues = "__values__"
)

// orderFieldGroups maps symbolic field groups to the concrete order fields
// (and special operation markers) they cover.
var orderFieldGroups = map[string]fieldSet{
	"basic-info": newFieldSet(
		"customer_name",
		"sketch_name",
		"customer_fee",
		"form_number",
		"start_form_number",
		"status",
		"current_stage",
		"progress_percentage",
		"delivery_date",
	),
	"notes": newFieldSet(
		"office_notes",
		"factory_notes",
		"customer_note_to_office",
		"design_specification",
	),
	"design": newFieldSet(
		"design_specification",
	),
	"dimensions": newFieldSet(
		"fabric_density",
		"fabric_cut",
		"width",
		"height",
		"quantity",
		"total_length_meters",
	),
	"pictures": newFieldSet(SpecialImages, "images"),
	"cuts": newFieldSet(
		"cut_type",
		"fusing_type",
		"lamination_type",
		"label_type",
	),
	"exit_from_office":  newFieldSet("exit_from_office_date"),
	"exit_from_factory": newFieldSet("exit_from_factory_date"),
	"factory-notes":     newFieldSet("factory_notes"),
	"coloring":          newFieldSet(SpecialValues, "peak_quantity"),
	"files":             newFieldSet(SpecialFiles),
}

// orderRoleGroups maps each role to the field groups it may write.
// Roles absent from the map get nothing (deny by default).
var orderRoleGroups = map[Role]map[string]struct{}{
	RoleAdmin:             {groupALL: {}},
	RoleOrderManager:      {"basic-info": {}, "notes": {}, "dimensions": {}, "pictures": {}, "cuts": {}},
	RoleDesigner:          {"exit_from_office": {}, "design": {}, "coloring": {}, "files": {}, "pictures": {}},
	RoleFactorySupervisor: {"exit_from_factory": {}, "factory-notes": {}},
	RoleInvoiceClerk:      {}, // view-only
}

// OrderPolicy answers which parts of an order mutation payload a role may apply
type OrderPolicy struct {
	Role Role
}

// NewOrderPolicy builds a policy for a stored role name
func NewOrderPolicy(roleName string) OrderPolicy {
	return OrderPolicy{Role: ParseRole(roleName)}
}

// AllowedGroups returns the field groups the role may write
func (p OrderPolicy) AllowedGroups() map[string]struct{} {
	groups, ok := orderRoleGroups[p.Role]
	if !ok {
		return map[string]struct{}{}
	}
	return groups
}

func (p OrderPolicy) hasAll() bool {
	_, ok := p.AllowedGroups()[groupALL]
	return ok
}

// EditableFields returns the concrete field names the role may write.
// Special markers are excluded; for the ALL sentinel the second return is
// true and the set is nil.
func (p OrderPolicy) EditableFields() (fieldSet, bool) {
	if p.hasAll() {
		return nil, true
	}
	fields := fieldSet{}
	for group := range p.AllowedGroups() {
		for f := range orderFieldGroups[group] {
			if strings.HasPrefix(f, "__") {
				continue
			}
			fields[f] = struct{}{}
		}
	}
	return fields, false
}

// AllowsSpecial reports whether the role may perform a non-field operation
// identified by marker (image/file upload, value rows)
func (p OrderPolicy) AllowsSpecial(marker string) bool {
	if p.hasAll() {
		return true
	}
	for group := range p.AllowedGroups() {
		if orderFieldGroups[group].contains(marker) {
			return true
		}
	}
	return false
}

// FilterPayload returns the subset of payload whose keys the role may write.
// Disallowed keys are dropped silently; callers needing strict rejection
// compare the result against the original payload themselves.
func (p OrderPolicy) FilterPayload(payload map[string]interface{}) map[string]interface{} {
	allowed, all := p.EditableFields()
	if all {
		return payload
	}
	filtered := make(map[string]interface{})
	for k, v := range payload {
		if allowed.contains(k) {
			filtered[k] = v
		}
	}
	return filtered
}
