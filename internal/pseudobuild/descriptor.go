package pseudobuild

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Descriptor is the persisted sidecar for outFile+prepend projects: it
// records where in the concatenated bundle this project's own emitted
// content begins, so a later pseudo-build can re-slice the bundle without
// re-invoking the compiler.
type Descriptor struct {
	OriginalOffset int64 `json:"originalOffset"`
	TotalLength    int64 `json:"totalLength"`
}

// SidecarPath returns the descriptor path for a given outFile bundle path:
// its ".js" extension replaced with ".bundle_info".
func SidecarPath(outFile string) string {
	ext := filepath.Ext(outFile)
	base := strings.TrimSuffix(outFile, ext)
	return base + ".bundle_info"
}

func encodeDescriptor(d Descriptor) ([]byte, error) {
	return json.Marshal(d)
}

func decodeDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
