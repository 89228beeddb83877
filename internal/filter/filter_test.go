package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression_Scalar(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		body       string
		want       string
		wantErr    bool
	}{
		{"string field", "userid", `{"userid":"abc-123","name":"x"}`, "abc-123", false},
		{"numeric field", "userid", `{"userid":42}`, "42", false},
		{"nested field", "data.id", `{"data":{"id":"n-1"}}`, "n-1", false},
		{"missing field", "userid", `{"name":"x"}`, "", false},
		{"object selected", "data", `{"data":{"id":"n-1"}}`, "", true},
		{"invalid json", "userid", `not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := MustCompile(tt.expression)
			got, err := expr.Scalar(tt.body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpression_Count(t *testing.T) {
	count, err := MustCompile("@").Count(`[{"userid":"a"},{"userid":"b"}]`)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = MustCompile("items").Count(`{"items":[1,2,3]}`)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = MustCompile("@").Count(`{"items":[]}`)
	assert.Error(t, err)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("users[?")
	assert.Error(t, err)
	assert.False(t, IsValidJMESPath("users[?"))
	assert.True(t, IsValidJMESPath("users[0].userid"))
}
