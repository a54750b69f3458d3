package filex

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Mode is an os.FileMode that decodes from an octal string ("0644", "755")
// or a plain integer.
type Mode os.FileMode

func (m Mode) Perm() os.FileMode { return os.FileMode(m).Perm() }

func (m Mode) String() string { return fmt.Sprintf("%#o", uint32(m)) }

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return m.set(v)
}

func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	// YAML would read 0644 as an octal int already; keep the literal text.
	return m.set(node.Value)
}

// ParseMode parses an octal permission string.
func ParseMode(s string) (Mode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	if v > 0o777 {
		return 0, fmt.Errorf("invalid file mode %q: out of range", s)
	}
	return Mode(v), nil
}

func (m *Mode) set(v any) error {
	switch value := v.(type) {
	case string:
		parsed, err := ParseMode(value)
		if err != nil {
			return err
		}
		*m = parsed
	case float64:
		*m = Mode(uint32(value))
	default:
		return fmt.Errorf("invalid file mode %v", v)
	}
	return nil
}
