package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(reader("  a@b.c \n"), "Enter email", &out)
	require.NoError(t, err)
	require.Equal(t, "a@b.c", got)
	require.Equal(t, "Enter email\n> ", out.String())
}

func TestGetSimpleText_EOF(t *testing.T) {
	var out bytes.Buffer

	got, err := GetSimpleText(reader("lastline"), "Name?", &out)
	require.NoError(t, err)
	require.Equal(t, "lastline", got)

	_, err = GetSimpleText(reader(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetCode(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte(" 123456 "), nil }
	var out bytes.Buffer
	code, err := GetCode(&out)
	require.NoError(t, err)
	require.Equal(t, "123456", code)
	require.Contains(t, out.String(), "Enter the code")

	readPassword = func(int) ([]byte, error) { return nil, errors.New("no tty") }
	_, err = GetCode(&out)
	require.EqualError(t, err, "no tty")
}
