package ids

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

// LoadOUI loads vendor names keyed by OUI (6 upper-case hex digits) from an
// IEEE registry CSV (Registry, Assignment, Organization Name, ...).
func LoadOUI(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readOUI(f)
}

func readOUI(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	// Header.
	if _, err := cr.Read(); err != nil {
		return nil, err
	}

	out := make(map[string]string, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 3 {
			continue
		}
		assignment := strings.NewReplacer("-", "", ":", "").Replace(strings.ToUpper(strings.TrimSpace(rec[1])))
		org := strings.TrimSpace(rec[2])
		if len(assignment) != 6 || org == "" {
			continue
		}
		out[assignment] = org
	}
	return out, nil
}
