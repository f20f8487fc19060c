package snapshot

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Level is the YAML document form of a snapshot, used by fixtures and the
// command line tool.
type Level struct {
	Vertices []Vertex  `yaml:"vertices"`
	Linedefs []Linedef `yaml:"linedefs"`
	Sidedefs []Sidedef `yaml:"sidedefs"`
	Sectors  []Sector  `yaml:"sectors"`
}

// UnmarshalYAML defaults an omitted back side to NoSidedef.
func (l *Linedef) UnmarshalYAML(value *yaml.Node) error {
	type plain Linedef

	p := plain{Back: NoSidedef}
	if err := value.Decode(&p); err != nil {
		return err
	}

	*l = Linedef(p)

	return nil
}

// Snapshot validates the level and freezes it.
func (l Level) Snapshot() (*Snapshot, error) {
	return New(l.Vertices, l.Linedefs, l.Sidedefs, l.Sectors)
}

// ParseLevel decodes a YAML level.
func ParseLevel(data []byte) (*Snapshot, error) {
	var lvl Level
	if err := yaml.Unmarshal(data, &lvl); err != nil {
		return nil, errors.Wrap(err, "failed to parse level")
	}

	return lvl.Snapshot()
}

// LoadLevel loads a YAML level from a file.
func LoadLevel(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read level %q", path)
	}

	s, err := ParseLevel(data)
	if err != nil {
		return nil, errors.Wrapf(err, "level %q", path)
	}

	return s, nil
}
