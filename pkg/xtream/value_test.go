package xtream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue_PanelProfile(t *testing.T) {
	body := `{"user_info":{"username":"u","status":"Active","max_connections":"1","exp_date":1767225600,"allowed_output_formats":["m3u8","ts"]},"server_info":{"url":"panel.example","port":"80"}}`

	v, err := ParseValue([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())
	assert.Equal(t, 2, v.Len())

	user, ok := v.Get("user_info")
	require.True(t, ok)

	status, ok := user.Get("status")
	require.True(t, ok)
	s, ok := status.AsString()
	require.True(t, ok)
	assert.Equal(t, "Active", s)

	exp, ok := user.Get("exp_date")
	require.True(t, ok)
	n, ok := exp.AsNumber()
	require.True(t, ok)
	assert.Equal(t, json.Number("1767225600"), n)

	formats, ok := user.Get("allowed_output_formats")
	require.True(t, ok)
	second, ok := formats.Index(1)
	require.True(t, ok)
	assert.Equal(t, String("ts"), second)

	_, ok = formats.Index(2)
	assert.False(t, ok)
}

func TestValue_RoundTripPreservesOrderAndNumbers(t *testing.T) {
	body := `{"z":1,"a":[true,false,null],"m":{"big":12345678901234567890,"f":1.50},"s":"x\"y"}`

	v, err := ParseValue([]byte(body))
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, body, string(out))
}

func TestValue_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
	}{
		{"null", "null", KindNull},
		{"bool", "true", KindBool},
		{"number", "-3.25e2", KindNumber},
		{"string", `"hello"`, KindString},
		{"empty array", "[]", KindArray},
		{"empty object", "{}", KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseValue([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.in, v.String())
		})
	}
}

func TestParseValue_Invalid(t *testing.T) {
	for _, in := range []string{"not json", "", "{", `{"a":1}x`} {
		_, err := ParseValue([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestValue_GetLastDuplicateWins(t *testing.T) {
	v, err := ParseValue([]byte(`{"k":1,"k":2}`))
	require.NoError(t, err)

	got, ok := v.Get("k")
	require.True(t, ok)
	n, _ := got.AsNumber()
	assert.Equal(t, json.Number("2"), n)

	_, ok = String("x").Get("k")
	assert.False(t, ok)
}

func TestValue_Interface(t *testing.T) {
	v := Object(
		Member{Key: "list", Value: Array(Number("1"), String("two"))},
		Member{Key: "flag", Value: Bool(true)},
		Member{Key: "none", Value: Null()},
	)

	got := v.Interface()
	assert.Equal(t, map[string]any{
		"list": []any{json.Number("1"), "two"},
		"flag": true,
		"none": nil,
	}, got)
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, "null", v.String())
	assert.Equal(t, "[]", Array().String())
	assert.Equal(t, "{}", Object().String())
}
