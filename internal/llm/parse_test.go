package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"leading prose is kept", "here you go {\"a\":1}", `here you go {"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestFirstJSONValue(t *testing.T) {
	assert.Equal(t, `{"a":{"b":2}}`, FirstJSONValue(`noise {"a":{"b":2}} trailing`))
	assert.Equal(t, `["x","y"]`, FirstJSONValue(`queries: ["x","y"]`))
	assert.Equal(t, `{"s":"br}ace"}`, FirstJSONValue(`{"s":"br}ace"}`), "braces inside strings are ignored")
	assert.Equal(t, "", FirstJSONValue("no structure at all"))
	assert.Equal(t, "", FirstJSONValue(`{"unterminated":`))
}

func TestDecodeStructured(t *testing.T) {
	var out struct {
		IsSufficient bool     `json:"is_sufficient"`
		Queries      []string `json:"queries"`
	}
	reply := "Sure, here is the verdict:\n```json\n{\"is_sufficient\": true, \"queries\": [\"q1\"]}\n```"
	require.NoError(t, DecodeStructured(reply, &out))
	assert.True(t, out.IsSufficient)
	assert.Equal(t, []string{"q1"}, out.Queries)

	err := DecodeStructured("the model rambled with no JSON", &out)
	assert.ErrorIs(t, err, ErrNoJSON)

	err = DecodeStructured(`{"is_sufficient": "not-a-bool"}`, &out)
	assert.Error(t, err)
}
