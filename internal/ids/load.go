package ids

import (
	"fmt"
	"os"
	"path/filepath"
)

type LoadConfig struct {
	// DataDir is the root directory that contains default/ and custom/ subfolders.
	// Example:
	//   data/default/oui.csv
	//   data/custom/beacons.yaml
	DataDir string

	// CustomDir optionally overrides the custom directory path. When empty, it is
	// assumed to be <DataDir>/custom.
	CustomDir string
}

// Load reads vendor and label files from the default directory and overlays
// the custom directory. Missing files are skipped; malformed files are errors.
func Load(cfg LoadConfig) (*Resolver, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	defaultDir := filepath.Join(cfg.DataDir, "default")
	customDir := cfg.CustomDir
	if customDir == "" {
		customDir = filepath.Join(cfg.DataDir, "custom")
	}

	res := &Resolver{vendors: map[string]string{}}
	for _, dir := range []string{defaultDir, customDir} {
		if err := loadOUIInto(res.vendors, filepath.Join(dir, "oui.csv")); err != nil {
			return nil, err
		}
		labels, err := loadLabelsIfExists(filepath.Join(dir, "beacons.yaml"))
		if err != nil {
			return nil, err
		}
		// Custom labels are checked first.
		res.labels = append(labels, res.labels...)
	}

	if cfg.CustomDir != "" {
		if _, err := os.Stat(cfg.CustomDir); err != nil {
			return res, fmt.Errorf("custom-data-dir not accessible: %w", err)
		}
	}
	return res, nil
}

func loadOUIInto(dst map[string]string, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	items, err := LoadOUI(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	for k, v := range items {
		dst[k] = v
	}
	return nil
}

func loadLabelsIfExists(path string) ([]Label, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	labels, err := LoadLabels(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return labels, nil
}
