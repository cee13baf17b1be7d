package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientSetAddIsMonotonic(t *testing.T) {
	var s RecipientSet
	assert.True(t, s.Add(7))
	assert.True(t, s.Add(3))
	assert.False(t, s.Add(7))
	assert.Equal(t, []int64{3, 7}, s.IDs())
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(4))
}

func TestRecipientSetEncodingRoundTrip(t *testing.T) {
	s := NewRecipientSet(12, 3, 7, 3)
	assert.Equal(t, "3,7,12", s.String())

	v, err := s.Value()
	require.NoError(t, err)

	var scanned RecipientSet
	require.NoError(t, scanned.Scan([]byte(v.(string))))
	assert.Equal(t, s.IDs(), scanned.IDs())
}

func TestRecipientSetScanEmpty(t *testing.T) {
	var s RecipientSet
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, 0, s.Len())
	require.NoError(t, s.Scan(""))
	assert.Equal(t, "", s.String())
}

func TestRecipientSetScanRejectsGarbage(t *testing.T) {
	var s RecipientSet
	assert.Error(t, s.Scan("1,x"))
	assert.Error(t, s.Scan(42))
}

func TestRecipientSetJSON(t *testing.T) {
	s := NewRecipientSet(2, 1)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(raw))

	empty, err := json.Marshal(RecipientSet{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))

	var back RecipientSet
	require.NoError(t, json.Unmarshal([]byte(`[5,5,4]`), &back))
	assert.Equal(t, []int64{4, 5}, back.IDs())
}

func TestRecipientContainsSQL(t *testing.T) {
	assert.Equal(t, "position(',' || $2::text || ',' in ',' || read_by || ',') > 0", RecipientContainsSQL("read_by", "$2"))
}
