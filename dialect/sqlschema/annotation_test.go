package sqlschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCascadeAction(t *testing.T) {
	tests := []struct {
		in      string
		want    CascadeAction
		wantErr bool
	}{
		{in: "", want: NoAction},
		{in: "cascade", want: Cascade},
		{in: "set_null", want: SetNull},
		{in: "SET DEFAULT", want: SetDefault},
		{in: " restrict ", want: Restrict},
		{in: "DROP", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCascadeAction(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConflictAction(t *testing.T) {
	t.Run("Parse accepts none", func(t *testing.T) {
		a, err := ParseConflictAction("none")
		require.NoError(t, err)
		assert.Equal(t, ConflictNone, a)
	})

	t.Run("Parse rejects unknown", func(t *testing.T) {
		_, err := ParseConflictAction("MERGE")
		require.Error(t, err)
	})

	t.Run("Clauses", func(t *testing.T) {
		assert.Equal(t, " ON CONFLICT REPLACE", ConflictReplace.OnConflict())
		assert.Equal(t, "OR IGNORE ", ConflictIgnore.Or())
		assert.Empty(t, ConflictNone.OnConflict())
		assert.Empty(t, ConflictNone.Or())
	})
}

func TestColumnType(t *testing.T) {
	ct, err := ParseColumnType("text")
	require.NoError(t, err)
	assert.Equal(t, Text, ct)

	_, err = ParseColumnType("varchar")
	require.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`id`", Quote("id"))
	assert.Equal(t, "`a`,`b`", QuoteAll([]string{"a", "b"}))
	assert.Empty(t, QuoteAll(nil))
}
