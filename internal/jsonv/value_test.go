package jsonv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Kinds(t *testing.T) {
	v, err := ParseString(`{"s":"x","n":1.5,"t":true,"f":false,"z":null,"a":[1,2],"o":{}}`)
	require.NoError(t, err)

	assert.Equal(t, KindObject, v.Kind())
	assert.Equal(t, KindString, v.Get("s").Kind())
	assert.Equal(t, "x", v.Get("s").Str())
	assert.InDelta(t, 1.5, v.Get("n").Number(), 0.0001)
	assert.True(t, v.Get("t").Bool())
	assert.False(t, v.Get("f").Bool())
	assert.Equal(t, KindNull, v.Get("z").Kind())
	assert.Len(t, v.Get("a").Items(), 2)
	assert.True(t, v.Get("o").IsObject())
	assert.True(t, v.Get("o").Empty())
}

func TestParse_Invalid(t *testing.T) {
	_, err := ParseString(`{"a":`)
	assert.Error(t, err)
}

func TestValue_MemberOrderPreserved(t *testing.T) {
	v, err := ParseString(`{"zeta":1,"alpha":2,"mid":3}`)
	require.NoError(t, err)

	keys := make([]string, 0, 3)
	for _, m := range v.Members() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestValue_DuplicateKeysLastWins(t *testing.T) {
	v, err := ParseString(`{"a":1,"b":2,"a":3}`)
	require.NoError(t, err)

	require.Len(t, v.Members(), 2)
	assert.Equal(t, "a", v.Members()[0].Key)
	assert.InDelta(t, 3, v.Get("a").Number(), 0.0001)
}

func TestValue_NilSafe(t *testing.T) {
	var v *Value

	assert.Equal(t, KindNull, v.Kind())
	assert.Nil(t, v.Get("x"))
	assert.Nil(t, v.Path("a", "b"))
	assert.False(t, v.Has("x"))
	assert.Equal(t, "", v.Str())
	assert.Nil(t, v.Members())
	assert.Nil(t, v.Items())
	assert.True(t, v.Empty())
	assert.Nil(t, v.FindFirst(func(*Value) bool { return true }))
}

func TestValue_Path(t *testing.T) {
	v, err := ParseString(`{"Expression":{"SourceRef":{"Source":"s"}}}`)
	require.NoError(t, err)

	assert.Equal(t, "s", v.Path("Expression", "SourceRef", "Source").Str())
	assert.Nil(t, v.Path("Expression", "Missing", "Source"))
}

func TestValue_Decode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantErr  bool
	}{
		{name: "encoded array", input: `"[{\"name\":\"f\"}]"`, wantKind: KindArray},
		{name: "encoded object", input: `"{\"a\":1}"`, wantKind: KindObject},
		{name: "already structured", input: `[1,2]`, wantKind: KindArray},
		{name: "invalid encoded json", input: `"{not json"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseString(tt.input)
			require.NoError(t, err)

			got, err := v.Decode()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind())
		})
	}
}

func TestValue_FindFirst_DocumentOrder(t *testing.T) {
	v, err := ParseString(`{"a":{"b":{"hit":1}},"c":{"hit":2}}`)
	require.NoError(t, err)

	found := v.FindFirst(func(x *Value) bool { return x.Has("hit") })
	require.NotNil(t, found)
	assert.InDelta(t, 1, found.Get("hit").Number(), 0.0001)
}

func TestValue_FindFirst_SkipsRoot(t *testing.T) {
	v, err := ParseString(`{"hit":1,"x":[{"hit":2}]}`)
	require.NoError(t, err)

	found := v.FindFirst(func(x *Value) bool { return x.Has("hit") })
	require.NotNil(t, found)
	assert.InDelta(t, 2, found.Get("hit").Number(), 0.0001)
}

func TestValue_Empty(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`null`, true},
		{`""`, true},
		{`[]`, true},
		{`{}`, true},
		{`"x"`, false},
		{`[0]`, false},
		{`0`, false},
		{`false`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Empty())
		})
	}
}
