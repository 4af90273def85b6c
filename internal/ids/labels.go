package ids

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"beaconscan/internal/beacon"
)

type labelFile struct {
	Beacons []Label `yaml:"beacons"`
}

// Label names a known beacon. Exactly one matcher should be set; optional
// fields left empty match anything.
type Label struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`

	IBeacon *struct {
		UUID  string  `yaml:"uuid"`
		Major *uint16 `yaml:"major"`
		Minor *uint16 `yaml:"minor"`
	} `yaml:"ibeacon"`

	Eddystone *struct {
		Namespace string `yaml:"namespace"`
		Instance  string `yaml:"instance"`
	} `yaml:"eddystone"`
}

// LoadLabels reads a beacons.yaml label file.
func LoadLabels(path string) ([]Label, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f labelFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	out := make([]Label, 0, len(f.Beacons))
	for i, l := range f.Beacons {
		l.Name = strings.TrimSpace(l.Name)
		if l.Name == "" {
			continue
		}
		l.Address = strings.ToUpper(strings.TrimSpace(l.Address))
		if l.IBeacon != nil {
			u, err := uuid.Parse(strings.TrimSpace(l.IBeacon.UUID))
			if err != nil {
				return nil, fmt.Errorf("beacon %d (%s): ibeacon uuid: %w", i, l.Name, err)
			}
			l.IBeacon.UUID = strings.ToUpper(u.String())
		}
		if l.Eddystone != nil {
			l.Eddystone.Namespace = strings.ToUpper(strings.TrimSpace(l.Eddystone.Namespace))
			l.Eddystone.Instance = strings.ToUpper(strings.TrimSpace(l.Eddystone.Instance))
		}
		if l.Address == "" && l.IBeacon == nil && l.Eddystone == nil {
			return nil, fmt.Errorf("beacon %d (%s): no matcher", i, l.Name)
		}
		out = append(out, l)
	}
	return out, nil
}

func (l Label) matches(r *beacon.Result) bool {
	if l.Address != "" && !strings.EqualFold(l.Address, r.Address) {
		return false
	}
	if l.IBeacon != nil {
		p, ok := r.Payload.(*beacon.IBeacon)
		if !ok || p.UUID != l.IBeacon.UUID {
			return false
		}
		if l.IBeacon.Major != nil && *l.IBeacon.Major != p.Major {
			return false
		}
		if l.IBeacon.Minor != nil && *l.IBeacon.Minor != p.Minor {
			return false
		}
	}
	if l.Eddystone != nil {
		p, ok := r.Payload.(*beacon.EddystoneUID)
		if !ok || p.Namespace != l.Eddystone.Namespace {
			return false
		}
		if l.Eddystone.Instance != "" && p.Instance != l.Eddystone.Instance {
			return false
		}
	}
	return true
}
