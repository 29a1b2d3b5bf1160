package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessMappingExactHeaders(t *testing.T) {
	got := GuessMapping([]string{"Item", "Vendor", "Price_Paid", "Standard_Price"})

	assert.Equal(t, ColumnMapping{
		Item:          "Item",
		Vendor:        "Vendor",
		PricePaid:     "Price_Paid",
		StandardPrice: "Standard_Price",
	}, got)
}

func TestGuessMappingSynonyms(t *testing.T) {
	got := GuessMapping([]string{"PO Number", "Product Name", "Supplier", "Market Cost", "Invoice Amount"})

	assert.Equal(t, "Product Name", got.Item)
	assert.Equal(t, "Supplier", got.Vendor)
	assert.Equal(t, "Market Cost", got.StandardPrice)
	assert.Equal(t, "Invoice Amount", got.PricePaid)
}

func TestGuessMappingFallsBackToUnusedColumns(t *testing.T) {
	got := GuessMapping([]string{"a", "b"})

	assert.Equal(t, "a", got.Item)
	assert.Equal(t, "b", got.Vendor)
	assert.Equal(t, "a", got.PricePaid)
	assert.Equal(t, "a", got.StandardPrice)
	require.NoError(t, got.Validate([]string{"a", "b"}))
}

func TestGuessMappingNoColumns(t *testing.T) {
	assert.Equal(t, ColumnMapping{}, GuessMapping(nil))
}

func TestValidateReportsFirstMissingRole(t *testing.T) {
	m := ColumnMapping{Item: "Item", Vendor: "", PricePaid: "nope", StandardPrice: "Std"}

	err := m.Validate([]string{"Item", "Std"})

	var mapErr *ColumnMappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, RoleVendor, mapErr.Role)
	assert.Contains(t, err.Error(), "no column selected")
}

func TestColumnLookup(t *testing.T) {
	for _, role := range Roles() {
		assert.NotEmpty(t, testMapping.Column(role), "role %s", role)
	}
	assert.Equal(t, "", testMapping.Column(Role("unknown")))
}

func TestOverrideKeepsUnsetRoles(t *testing.T) {
	guess := GuessMapping([]string{"Item", "Vendor", "Price_Paid", "Standard_Price", "Invoice"})

	got := guess.Override(ColumnMapping{PricePaid: "Invoice"})

	assert.Equal(t, "Item", got.Item)
	assert.Equal(t, "Invoice", got.PricePaid)
	assert.Equal(t, "Standard_Price", got.StandardPrice)
}
