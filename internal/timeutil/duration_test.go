package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	for _, e := range []struct {
		input    string
		expected time.Duration
	}{
		{"1h", time.Hour},
		{"90m", 90 * time.Minute},
		{"1d", Day},
		{"2d", 2 * Day},
		{"1d12h", 36 * time.Hour},
		{"1d30m", Day + 30*time.Minute},
		{"-1d", -Day},
		{"+2h", 2 * time.Hour},
		{"0s", 0},
	} {
		t.Run(e.input, func(t *testing.T) {
			a := assert.New(t)

			d, err := Parse(e.input)
			a.NoError(err)
			a.Equal(e.expected, d.Duration())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "d", "1dd", "one hour", "1x"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestString(t *testing.T) {
	for _, e := range []struct {
		input    Duration
		expected string
	}{
		{Duration(time.Hour), "1h0m0s"},
		{Duration(Day), "1d"},
		{Duration(36 * time.Hour), "1d12h0m0s"},
		{Duration(-Day), "-1d"},
		{Duration(0), "0s"},
	} {
		t.Run(e.expected, func(t *testing.T) {
			assert.Equal(t, e.expected, e.input.String())
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	a := assert.New(t)

	original := Duration(Day + 6*time.Hour)

	text, err := original.MarshalText()
	a.NoError(err)

	var decoded Duration
	a.NoError(decoded.UnmarshalText(text))
	a.Equal(original, decoded)
}
