package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0o755)
}

// WriteFile writes data to path, creating parent folders as needed.
func WriteFile(path string, data []byte) error {
	if mkErr := EnsureDir(filepath.Dir(path)); mkErr != nil {
		return fmt.Errorf("create folder for %q: %w", path, mkErr)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func WritePrettyJSON(path string, value any) error {
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("pretty-print json for %q: %w", path, err)
	}
	return WriteFile(path, pretty)
}

func PrintLine(line string) {
	fmt.Println(line)
}
