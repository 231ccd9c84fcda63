package render

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/cyclopcam/scenereel/pkg/iox"
)

// SidecarRecord is the JSON form of one box drawn on an annotated frame.
// It holds everything needed to rebuild the box, and so re-project it later.
type SidecarRecord struct {
	Token       string     `json:"token"`
	Label       string     `json:"label"`
	WLH         [3]float64 `json:"wlh"`
	Center      [3]float64 `json:"center"`
	Orientation [4]float64 `json:"orientation"` // w,x,y,z
}

func RecordFromBox(b *geom.Box) SidecarRecord {
	return SidecarRecord{
		Token:       b.Token,
		Label:       b.Label,
		WLH:         b.WLH,
		Center:      b.Center,
		Orientation: b.Orientation,
	}
}

// Box rebuilds the box exactly as it was written. The orientation is not renormalized.
func (r *SidecarRecord) Box() geom.Box {
	return geom.Box{
		Token:       r.Token,
		Label:       r.Label,
		WLH:         r.WLH,
		Center:      r.Center,
		Orientation: r.Orientation,
	}
}

// WriteSidecar writes the records as an indented JSON array. An empty frame is written as [].
func WriteSidecar(filename string, records []SidecarRecord) error {
	if records == nil {
		records = []SidecarRecord{}
	}
	raw, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	return iox.WriteFileAtomic(filename, raw, 0644)
}

// ReadSidecar loads the boxes of an annotated frame
func ReadSidecar(filename string) ([]geom.Box, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	records := []SidecarRecord{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("Error decoding sidecar %v: %w", filename, err)
	}
	boxes := make([]geom.Box, len(records))
	for i := range records {
		boxes[i] = records[i].Box()
	}
	return boxes, nil
}
