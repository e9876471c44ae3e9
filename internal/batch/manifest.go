package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry describes one input of a batch run in the output manifest.
type ManifestEntry struct {
	Input string `json:"input"`
	Image string `json:"image,omitempty"`
	Key   string `json:"key,omitempty"`
	Error string `json:"error,omitempty"`
}

// WriteManifest writes manifest.json describing a finished run.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Input: r.Input,
			Key:   r.Key,
			Error: r.Error,
		}
		if r.Success {
			entries[i].Image = filepath.Base(r.Output)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
