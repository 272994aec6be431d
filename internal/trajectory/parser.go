package trajectory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedDocument marks documents that cannot be decoded as a
// trajectory at all. Missing individual optional fields are not an error;
// they resolve to zero values.
var ErrMalformedDocument = errors.New("malformed trajectory document")

// Parse decodes one trajectory document.
func Parse(data []byte) (*Trajectory, error) {
	var traj Trajectory
	if err := json.Unmarshal(data, &traj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &traj, nil
}

// ParseFile reads and decodes the trajectory document at path.
func ParseFile(path string) (*Trajectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trajectory file: %w", err)
	}
	return Parse(data)
}
