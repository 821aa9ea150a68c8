package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readValue разбирает JSON объект из аргумента; "-" читает stdin
func readValue(arg string, stdin io.Reader) (map[string]any, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		raw, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, errors.New("value cannot be empty")
	}

	var value map[string]any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("value must be a JSON object: %w", err)
	}
	if value == nil {
		return nil, errors.New("value must be a JSON object")
	}
	return value, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
