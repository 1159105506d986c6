package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.NotEqual(t, a, b)
	assert.NoError(t, a.Validate())
	assert.False(t, a.IsZero())
}

func TestParseID(t *testing.T) {
	id := NewID()

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("")
	require.Error(t, err)

	_, err = ParseID("not-a-uuid")
	require.Error(t, err)
}

func TestID_Validate(t *testing.T) {
	assert.Error(t, ID("").Validate())
	assert.Error(t, ID("garbage").Validate())
	assert.NoError(t, NewID().Validate())
}

func TestID_JSON(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	// The zero ID serializes as null.
	data, err = json.Marshal(ID(""))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	require.Error(t, json.Unmarshal([]byte(`"nope"`), &decoded))
}
