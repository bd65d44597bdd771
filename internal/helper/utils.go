package helper

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DocumentID derives a stable document id from the file content, so the same
// file maps to the same indices across runs.
func DocumentID(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v", filePath, err)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String(), nil
}

// PrettyPrint writes v as indented JSON to stdout
func PrettyPrint(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}

// CreateFolder creates path and any missing parents
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %v", path, err)
	}
	return nil
}
