package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cartsync/internal/models"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("  Milk  \n"))

	got, err := GetSimpleText(r, "Item name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got)
	assert.Contains(t, out.String(), "Item name")
}

func TestGetSimpleText_PartialLineAtEOF(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("no newline"))

	got, err := GetSimpleText(r, "Prompt", &out)
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte("secret"), nil }
	defer func() { readPassword = orig }()

	var out bytes.Buffer
	pw, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)
	assert.Contains(t, out.String(), "Enter password")
}

func TestGetYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"whatever\n", false},
	}
	for _, tc := range tests {
		var out bytes.Buffer
		r := bufio.NewReader(strings.NewReader(tc.input))
		got, err := GetYesNo(r, "Sure?", &out)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestFormatItem(t *testing.T) {
	now := time.Now()
	it := models.Item{Name: "Milk", Done: true, DoneAt: &now, Repeating: models.RepeatWeekly, Description: "2l"}
	s := formatItem(3, it)
	assert.Contains(t, s, "[x]")
	assert.Contains(t, s, "Milk")
	assert.Contains(t, s, "weekly")
	assert.Contains(t, s, "2l")

	s = formatItem(1, models.Item{Name: "Bread"})
	assert.Contains(t, s, "[ ]")
	assert.NotContains(t, s, "(")
}

func TestResolveItem(t *testing.T) {
	var lines []string
	orig := printlnFn
	printlnFn = func(args ...any) { lines = append(lines, "x") }
	defer func() { printlnFn = orig }()

	a := &App{itemView: []string{"id-1", "id-2"}}

	id, ok := a.resolveItem("2")
	assert.True(t, ok)
	assert.Equal(t, "id-2", id)

	for _, bad := range []string{"0", "3", "abc"} {
		_, ok := a.resolveItem(bad)
		assert.False(t, ok, "input %q", bad)
	}
	assert.Len(t, lines, 3)
}
