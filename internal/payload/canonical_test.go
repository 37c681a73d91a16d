package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"b": 2,
		"a": 1,
		"c": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(out))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	doc := map[string]any{
		"game_id": "g-1",
		"moments": []any{
			map[string]any{"period": 1, "narrative": "text"},
			map[string]any{"period": 2, "narrative": "more"},
		},
		"active": true,
	}
	a, err := MarshalCanonical(doc)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := MarshalCanonical(doc)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"s": "<a&b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"<a&b>"}`, string(out))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" composed vs decomposed must serialize identically.
	composed, err := MarshalCanonical("café")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	out, err := MarshalCanonical("a b c")
	require.NoError(t, err)
	assert.Equal(t, "\"a b c\"", string(out))
}

func TestMarshalCanonical_FloatsForbidden(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestMarshalCanonical_NullForbidden(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_UnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestLessUTF16_SupplementaryPlane(t *testing.T) {
	// U+FF61 is a single code unit 0xFF61; U+10000 encodes as the
	// surrogate pair D800 DC00. UTF-16 order puts the surrogate first,
	// byte order would not.
	assert.True(t, lessUTF16("\U00010000", "｡"))
	assert.False(t, lessUTF16("｡", "\U00010000"))
}

func TestHash_DomainSeparated(t *testing.T) {
	data := []byte(`{"a":1}`)
	h := Hash(data)
	assert.Len(t, h, 64)
	assert.NotEqual(t, Hash([]byte(`{"a":2}`)), h)
	assert.NotEqual(t, hashWithDomain("moments/other/v1", data), h,
		"the same bytes under a different domain hash differently")
}

func TestHashValue(t *testing.T) {
	h1, err := HashValue(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	h2, err := HashValue(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "key order in the literal cannot change the hash")

	_, err = HashValue(map[string]any{"x": 3.14})
	assert.Error(t, err)
}
