package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogTotal(t *testing.T) {
	all := All()
	require.Len(t, all, 23)

	seen := make(map[Name]struct{}, len(all))
	for _, name := range all {
		_, dup := seen[name]
		require.False(t, dup, "duplicate catalog name %q", name)
		seen[name] = struct{}{}

		require.True(t, Valid(name))

		// Every name must decode an empty payload to its zero value.
		p, err := Decode(name, nil)
		require.NoError(t, err, "no decoder for %q", name)
		require.NotNil(t, p)
	}

	require.Len(t, decoders, len(all), "decoder table and name list out of sync")
}

func TestDecode(t *testing.T) {
	p, err := Decode(BeforeUserMessageReceive, json.RawMessage(`{"message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, UserMessage{Message: "hello"}, p)

	p, err = Decode(OnExpressionChange, json.RawMessage(`{"expression":"happy","weight":0.8}`))
	require.NoError(t, err)
	require.Equal(t, Expression{Expression: "happy", Weight: 0.8}, p)

	_, err = Decode(Name("on:llm:bogus"), nil)
	require.Error(t, err)

	_, err = Decode(OnLLMChunk, json.RawMessage(`{"chunk":42}`))
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	require.True(t, Valid(ScenarioUpdate))
	require.False(t, Valid(Name("scenario:delete")))
	require.False(t, Valid(Name("")))
}
