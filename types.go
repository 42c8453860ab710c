package stowhub

import "fmt"

// Bool is a boolean that the API transmits as the integers 0 and 1.
type Bool bool

func (b Bool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}

	return []byte("0"), nil
}

func (b *Bool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "0", "false":
		*b = false

	case "1", "true":
		*b = true

	default:
		return fmt.Errorf("invalid boolean value %q", data)
	}

	return nil
}
