package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errInvalidPort = errors.New("port must be an integer or a numeric string")
	errInvalidFlag = errors.New("flag must be a bool, number or boolean string")
)

// Port accepts either a JSON number or a numeric string.
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%w: %q", errInvalidPort, s)
		}

		*p = Port(n)

		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s", errInvalidPort, data)
	}

	if f != math.Trunc(f) {
		return fmt.Errorf("%w: %s", errInvalidPort, data)
	}

	*p = Port(int(f))

	return nil
}

// Flag accepts a JSON bool, a number (non-zero is true) or a boolean string.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			*f = false

			return nil
		}

		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return fmt.Errorf("%w: %q", errInvalidFlag, v)
		}

		*f = Flag(b)
	default:
		return fmt.Errorf("%w: %s", errInvalidFlag, data)
	}

	return nil
}
