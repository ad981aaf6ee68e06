package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListValue(t *testing.T) {
	v, err := StringList{"grafos", "árboles"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `["grafos","árboles"]`, string(v.([]byte)))

	v, err = StringList(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStringListScan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan([]byte(`["pilas","colas"]`)))
	assert.Equal(t, StringList{"pilas", "colas"}, l)

	require.NoError(t, l.Scan(`["recursión"]`))
	assert.Equal(t, StringList{"recursión"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))
}
