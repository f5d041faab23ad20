package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// stdout receives command output. Replaced in tests.
var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
