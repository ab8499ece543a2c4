package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		query map[string]any
		want  string
	}{
		{
			name: "nil params returns base unchanged",
			base: "http://test.com/1",
			want: "http://test.com/1",
		},
		{
			name:  "empty params returns base unchanged",
			base:  "http://test.com/1",
			query: map[string]any{},
			want:  "http://test.com/1",
		},
		{
			name:  "base without path gets slash",
			base:  "http://test.com",
			query: map[string]any{"a": "b"},
			want:  "http://test.com/?a=b",
		},
		{
			name:  "base with path",
			base:  "http://test.com/segment",
			query: map[string]any{"a": "b"},
			want:  "http://test.com/segment?a=b",
		},
		{
			name:  "existing query appends with ampersand",
			base:  "http://test.com/1?a=b",
			query: map[string]any{"c": "d"},
			want:  "http://test.com/1?a=b&c=d",
		},
		{
			name:  "base ending in question mark",
			base:  "http://test.com/1?",
			query: map[string]any{"a": "b"},
			want:  "http://test.com/1?a=b",
		},
		{
			name:  "base ending in ampersand",
			base:  "http://test.com/1?a=b&",
			query: map[string]any{"c": "d"},
			want:  "http://test.com/1?a=b&c=d",
		},
		{
			name:  "nil value renders empty",
			base:  "http://test.com/1",
			query: map[string]any{"a": nil},
			want:  "http://test.com/1?a=",
		},
		{
			name:  "multiple keys in sorted order",
			base:  "http://test.com/1",
			query: map[string]any{"b": "2", "a": "1"},
			want:  "http://test.com/1?a=1&b=2",
		},
		{
			name:  "slice value renders array syntax",
			base:  "http://test.com/1",
			query: map[string]any{"a": []string{"x", "y"}},
			want:  "http://test.com/1?a[]=x&a[]=y",
		},
		{
			name:  "numeric value",
			base:  "http://test.com/1",
			query: map[string]any{"number": 100},
			want:  "http://test.com/1?number=100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Append(tt.base, tt.query))
		})
	}
}

func TestAppendPairs(t *testing.T) {
	got, err := AppendPairs("http://test.com/1", "a", "b", "c", "d")
	require.NoError(t, err)
	assert.Equal(t, "http://test.com/1?a=b&c=d", got)
}

func TestAppendPairs_Empty(t *testing.T) {
	got, err := AppendPairs("http://test.com/1")
	require.NoError(t, err)
	assert.Equal(t, "http://test.com/1", got)
}

func TestAppendPairs_OddLength(t *testing.T) {
	_, err := AppendPairs("http://test.com/1", "a", "b", "c")
	assert.ErrorIs(t, err, ErrOddPairs)
}

func TestAppendPairs_NilValue(t *testing.T) {
	got, err := AppendPairs("http://test.com/1", "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://test.com/1?a=", got)
}

func TestAppendPairs_SliceValue(t *testing.T) {
	got, err := AppendPairs("http://test.com/1", "a", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "http://test.com/1?a[]=1&a[]=2", got)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://google.com", "http://google.com"},
		{"https://google.com", "https://google.com"},
		{"http://google.com/a", "http://google.com/a"},
		{"http://google.com/a/", "http://google.com/a/"},
		{"http://google.com/a/b", "http://google.com/a/b"},
		{"http://google.com/a?", "http://google.com/a?"},
		{"http://google.com/a?b=c", "http://google.com/a?b=c"},
		{"http://google.com/a?b=c d", "http://google.com/a?b=c%20d"},
		{"http://google.com/a b", "http://google.com/a%20b"},
		{"http://google.com/a.b", "http://google.com/a.b"},
		{"http://google.com/✓?a=b", "http://google.com/%E2%9C%93?a=b"},
		{"http://google.com/a^b", "http://google.com/a%5Eb"},
		{"http://google.com/a.b?c=d.e", "http://google.com/a.b?c=d.e"},
		{"http://google.com/a.b?c=d/e", "http://google.com/a.b?c=d/e"},
		{"http://google.com/a?☑", "http://google.com/a?%E2%98%91"},
		{"http://google.com/a?b=☐", "http://google.com/a?b=%E2%98%90"},
		{"http://google.com/a?b=c+d&e=f+g", "http://google.com/a?b=c%2Bd&e=f%2Bg"},
		{"http://google.com/+", "http://google.com/+"},
		{"http://google.com/+?a=b+c", "http://google.com/+?a=b%2Bc"},
		{"http://host.com:8080/path?q=1", "http://host.com:8080/path?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Idempotent(t *testing.T) {
	inputs := []string{
		"http://google.com/a/b?c=d",
		"http://google.com/a%20b",
		"http://google.com/%E2%9C%93?a=b",
	}
	for _, in := range inputs {
		once, err := Encode(in)
		require.NoError(t, err)
		twice, err := Encode(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestEncode_DropsFragment(t *testing.T) {
	got, err := Encode("http://google.com/a?b=c#fragment")
	require.NoError(t, err)
	assert.Equal(t, "http://google.com/a?b=c", got)
}

func TestEncode_Malformed(t *testing.T) {
	_, err := Encode(`\m/`)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Encode("not a url")
	assert.ErrorIs(t, err, ErrMalformed)
}
