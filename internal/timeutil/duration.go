package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const Day = 24 * time.Hour

// Duration is a time.Duration that also accepts a whole-day component when
// parsed from text, e.g. "2d", "1d12h", or anything time.ParseDuration
// understands. Days are always 24 hours.
type Duration time.Duration

func Parse(s string) (Duration, error) {
	var d Duration
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("timeutil.Parse: %w", err)
	}

	return d, nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "" {
		return fmt.Errorf("timeutil.Duration.UnmarshalText: empty duration string")
	}

	rest := s

	negative := false
	if rest[0] == '-' || rest[0] == '+' {
		negative = rest[0] == '-'
		rest = rest[1:]
	}

	var days int64
	if i := strings.IndexByte(rest, 'd'); i >= 0 {
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return fmt.Errorf("timeutil.Duration.UnmarshalText: could not parse day component of %q: %w", s, err)
		}

		days = n
		rest = rest[i+1:]
	}

	var v time.Duration
	if rest != "" {
		var err error
		v, err = time.ParseDuration(rest)
		if err != nil {
			return fmt.Errorf("timeutil.Duration.UnmarshalText: could not parse %q: %w", s, err)
		}
	}

	v += time.Duration(days) * Day
	if negative {
		v = -v
	}

	*d = Duration(v)

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	v := time.Duration(d)

	var b strings.Builder

	if v < 0 {
		b.WriteByte('-')
		v = -v
	}

	if days := v / Day; days > 0 {
		fmt.Fprintf(&b, "%dd", days)

		v -= days * Day
		if v == 0 {
			return b.String()
		}
	}

	b.WriteString(v.String())

	return b.String()
}
