package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
)

// LoadError describes a catalog entry that could not be loaded.
type LoadError struct {
	Machine string
	Field   string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Machine == "" {
		return fmt.Sprintf("load catalog: %v", e.Err)
	}
	if e.Field == "" {
		return fmt.Sprintf("load catalog: machine %q: %v", e.Machine, e.Err)
	}
	return fmt.Sprintf("load catalog: machine %q: %s: %v", e.Machine, e.Field, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type machineJSON struct {
	BasePrice       json.RawMessage   `json:"base_price"`
	Discount        json.RawMessage   `json:"discount"`
	StandardOptions []json.RawMessage `json:"standard_options"`
	OptionalOptions []json.RawMessage `json:"optional_options"`
}

type optionJSON struct {
	Description json.RawMessage `json:"description"`
	Price       json.RawMessage `json:"price"`
	Code        json.RawMessage `json:"code"`
}

// LoadFile reads a JSON catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	defer f.Close()

	return Load(f)
}

// Load decodes a JSON catalog mapping machine name to its configuration.
// Bare NaN tokens, as written by spreadsheet exports, are read as the text
// "nan". Any malformed entry fails the whole load.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("read catalog: %w", err)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(quoteNaN(data), &raw); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("decode json: %w", err)}
	}

	machines := make([]Machine, 0, len(raw))
	for name, body := range raw {
		m, err := decodeMachine(name, body)
		if err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}

	c, err := New(machines)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return c, nil
}

func decodeMachine(name string, body json.RawMessage) (Machine, error) {
	var mj machineJSON
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&mj); err != nil {
		return Machine{}, &LoadError{Machine: name, Err: err}
	}

	m := Machine{Name: name}

	var err error
	if m.BasePrice, err = decodeAmount(mj.BasePrice); err != nil {
		return Machine{}, &LoadError{Machine: name, Field: "base_price", Err: err}
	}
	if m.DefaultDiscount, err = decodeAmount(mj.Discount); err != nil {
		return Machine{}, &LoadError{Machine: name, Field: "discount", Err: err}
	}

	m.StandardOptions = make([]string, 0, len(mj.StandardOptions))
	for i, rawOpt := range mj.StandardOptions {
		text, err := scalarText(rawOpt)
		if err != nil {
			return Machine{}, &LoadError{Machine: name, Field: fmt.Sprintf("standard_options[%d]", i), Err: err}
		}
		m.StandardOptions = append(m.StandardOptions, text)
	}

	m.OptionalOptions = make([]Option, 0, len(mj.OptionalOptions))
	for i, rawOpt := range mj.OptionalOptions {
		opt, err := decodeOption(rawOpt)
		if err != nil {
			return Machine{}, &LoadError{Machine: name, Field: fmt.Sprintf("optional_options[%d]", i), Err: err}
		}
		m.OptionalOptions = append(m.OptionalOptions, opt)
	}

	return m, nil
}

func decodeOption(raw json.RawMessage) (Option, error) {
	var oj optionJSON
	if err := json.Unmarshal(raw, &oj); err != nil {
		return Option{}, fmt.Errorf("expected an object: %w", err)
	}

	var opt Option
	var err error
	if opt.Description, err = scalarText(oj.Description); err != nil {
		return Option{}, fmt.Errorf("description: %w", err)
	}
	if opt.Price, err = scalarText(oj.Price); err != nil {
		return Option{}, fmt.Errorf("price: %w", err)
	}
	if opt.Code, err = scalarText(oj.Code); err != nil {
		return Option{}, fmt.Errorf("code: %w", err)
	}
	return opt, nil
}

func decodeAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return decimal.Zero, fmt.Errorf("missing value")
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %s", raw)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %s", raw)
	}
	return d, nil
}

// scalarText coerces a JSON scalar to text. Numbers keep their literal form,
// null and absent values become "".
func scalarText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected a scalar, got %s", trimmed)
	default:
		// numbers and booleans
		return string(trimmed), nil
	}
}

// quoteNaN rewrites NaN tokens outside string literals to "nan".
func quoteNaN(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) {
		return data
	}

	out := make([]byte, 0, len(data)+8)
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == 'N' && bytes.HasPrefix(data[i:], []byte("NaN")):
			out = append(out, `"nan"`...)
			i += len("NaN") - 1
			continue
		}
		out = append(out, c)
	}
	return out
}
