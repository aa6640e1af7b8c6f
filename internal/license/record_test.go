package license

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecord("  Ali  ", now)

	assert.Equal(t, "Ali", rec.CustomerName)
	assert.True(t, rec.Active)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Nil(t, rec.HWID)
	assert.Nil(t, rec.ActivatedAt)
	assert.Equal(t, StateIssued, rec.State())
	assert.False(t, rec.Bound())
}

func TestRecord_StateBound(t *testing.T) {
	hwid := "HW-1"
	rec := Record{CustomerName: "Ali", HWID: &hwid}

	assert.Equal(t, StateBound, rec.State())
	assert.True(t, rec.Bound())
}

func TestRecord_MatchesCustomer(t *testing.T) {
	rec := Record{CustomerName: "Ali Hassan"}

	assert.True(t, rec.MatchesCustomer("Ali Hassan"))
	assert.True(t, rec.MatchesCustomer("ali hassan"))
	assert.True(t, rec.MatchesCustomer("  ALI HASSAN  "))
	assert.False(t, rec.MatchesCustomer("Ali"))
	assert.False(t, rec.MatchesCustomer(""))
}

func TestRecord_JSONLayout(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecord("Ali", now)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "Ali", raw["customerName"])
	assert.Equal(t, true, raw["active"])
	assert.Contains(t, raw, "hwid")
	assert.Nil(t, raw["hwid"])
	assert.Contains(t, raw, "activatedAt")
	assert.Nil(t, raw["activatedAt"])
	assert.Equal(t, "2024-05-01T12:00:00Z", raw["createdAt"])
}
