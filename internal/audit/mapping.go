package audit

import (
	"fmt"
	"strings"
)

// Role names one of the four semantic columns an audit needs.
type Role string

const (
	RoleItem          Role = "item"
	RoleVendor        Role = "vendor"
	RolePricePaid     Role = "price_paid"
	RoleStandardPrice Role = "standard_price"
)

// Roles lists every role in validation order.
func Roles() []Role {
	return []Role{RoleItem, RoleVendor, RolePricePaid, RoleStandardPrice}
}

// ColumnMapping associates each role with a column name. Roles may share a column.
type ColumnMapping struct {
	Item          string `json:"item" mapstructure:"item"`
	Vendor        string `json:"vendor" mapstructure:"vendor"`
	PricePaid     string `json:"price_paid" mapstructure:"price_paid"`
	StandardPrice string `json:"standard_price" mapstructure:"standard_price"`
}

// Column returns the column mapped to role.
func (m ColumnMapping) Column(role Role) string {
	switch role {
	case RoleItem:
		return m.Item
	case RoleVendor:
		return m.Vendor
	case RolePricePaid:
		return m.PricePaid
	case RoleStandardPrice:
		return m.StandardPrice
	default:
		return ""
	}
}

// ColumnMappingError reports a role mapped to a column the dataset does not have.
type ColumnMappingError struct {
	Role   Role
	Column string
}

func (e *ColumnMappingError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("column mapping: no column selected for %s", e.Role)
	}
	return fmt.Sprintf("column mapping: %s references missing column %q", e.Role, e.Column)
}

// Validate checks every role against the dataset header.
func (m ColumnMapping) Validate(columns []string) error {
	known := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		known[col] = struct{}{}
	}
	for _, role := range Roles() {
		col := m.Column(role)
		if _, ok := known[col]; !ok {
			return &ColumnMappingError{Role: role, Column: col}
		}
	}
	return nil
}

// Override returns m with every non-empty role of o applied on top.
func (m ColumnMapping) Override(o ColumnMapping) ColumnMapping {
	if o.Item != "" {
		m.Item = o.Item
	}
	if o.Vendor != "" {
		m.Vendor = o.Vendor
	}
	if o.PricePaid != "" {
		m.PricePaid = o.PricePaid
	}
	if o.StandardPrice != "" {
		m.StandardPrice = o.StandardPrice
	}
	return m
}

var roleKeywords = map[Role][]string{
	RoleItem:          {"item", "product", "description", "material", "sku"},
	RoleVendor:        {"vendor", "supplier", "seller", "contractor", "merchant"},
	RolePricePaid:     {"paid", "actual", "invoice", "purchase", "cost"},
	RoleStandardPrice: {"standard", "market", "benchmark", "list", "reference", "expected"},
}

// guess order: standard before paid so "Market Cost" is not taken as the paid column.
var guessOrder = []Role{RoleItem, RoleVendor, RoleStandardPrice, RolePricePaid}

// GuessMapping pre-selects a column per role from header keywords, falling
// back to the first unused column. The result is only a suggestion for the UI.
func GuessMapping(columns []string) ColumnMapping {
	if len(columns) == 0 {
		return ColumnMapping{}
	}

	used := make(map[int]bool, len(columns))
	picked := make(map[Role]string, len(guessOrder))

	for _, role := range guessOrder {
		for i, col := range columns {
			if used[i] || !matchesAny(col, roleKeywords[role]) {
				continue
			}
			used[i] = true
			picked[role] = col
			break
		}
	}

	for _, role := range Roles() {
		if _, ok := picked[role]; ok {
			continue
		}
		picked[role] = columns[0]
		for i, col := range columns {
			if !used[i] {
				used[i] = true
				picked[role] = col
				break
			}
		}
	}

	return ColumnMapping{
		Item:          picked[RoleItem],
		Vendor:        picked[RoleVendor],
		PricePaid:     picked[RolePricePaid],
		StandardPrice: picked[RoleStandardPrice],
	}
}

func matchesAny(column string, keywords []string) bool {
	lower := strings.ToLower(column)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
