package json

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQ_StripsSurroundingQuotes(t *testing.T) {
	require.Equal(t, []byte("hello"), Q([]byte(`"hello"`)))
	require.Equal(t, []byte("hello"), Q([]byte("hello")))
	require.Equal(t, []byte(`"`), Q([]byte(`"`)))
}

func TestS_ViewsBytesAsString(t *testing.T) {
	require.Equal(t, "hello", S([]byte("hello")))
}

func TestSQ_UnquotesAndViews(t *testing.T) {
	require.Equal(t, "hello", SQ([]byte(`"hello"`)))
}

func TestArrayEach_VisitsEveryElement(t *testing.T) {
	var got []string
	err := ArrayEach([]byte(`["a","b","c"]`), func(val []byte) error {
		got = append(got, SQ(val))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestArrayEach_StopsOnCallbackError(t *testing.T) {
	wantErr := errors.New("stop here")
	var got []string
	err := ArrayEach([]byte(`["a","b","c"]`), func(val []byte) error {
		got = append(got, SQ(val))
		if len(got) == 2 {
			return wantErr
		}
		return nil
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, []string{"a", "b"}, got)
}

func TestObjectEach_VisitsEveryField(t *testing.T) {
	got := make(map[string]string)
	err := ObjectEach([]byte(`{"k1":"v1","k2":"v2"}`), func(key, val []byte) error {
		got[SQ(key)] = SQ(val)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, got)
}
