package models

import (
	"testing"

	"royal-collector/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCase_SyncActiveKeys(t *testing.T) {
	c := &Case{
		BorrowerEmail: "b@example.com",
		BorrowerPhone: "9876543210",
		Status:        domain.CaseStatusActive,
	}

	c.SyncActiveKeys()
	require.NotNil(t, c.ActiveEmailKey)
	require.NotNil(t, c.ActivePhoneKey)
	assert.Equal(t, "b@example.com", *c.ActiveEmailKey)
	assert.Equal(t, "9876543210", *c.ActivePhoneKey)

	c.Status = domain.CaseStatusCompleted
	c.SyncActiveKeys()
	assert.Nil(t, c.ActiveEmailKey)
	assert.Nil(t, c.ActivePhoneKey)
}

func TestCase_BalanceWithinBounds(t *testing.T) {
	c := &Case{AmountLent: decimal.NewFromInt(1000), AmountPending: decimal.NewFromInt(1000)}
	assert.True(t, c.BalanceWithinBounds())

	c.AmountPending = decimal.Zero
	assert.True(t, c.BalanceWithinBounds())

	c.AmountPending = decimal.NewFromInt(1001)
	assert.False(t, c.BalanceWithinBounds())

	c.AmountPending = decimal.NewFromInt(-1)
	assert.False(t, c.BalanceWithinBounds())
}

func TestCase_ToResponseNeverReturnsNilDocuments(t *testing.T) {
	resp := (&Case{}).ToResponse()
	assert.NotNil(t, resp.ProofDocuments)
}

func TestStringList_ValueAndScan(t *testing.T) {
	v, err := StringList{"a.png", "b.pdf"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a.png","b.pdf"]`, v)

	var l StringList
	require.NoError(t, l.Scan([]byte(`["x.jpg"]`)))
	assert.Equal(t, StringList{"x.jpg"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
}
