// Package visualiser streams per-frame motion decisions to gRPC clients
// while a run is in progress.
//
// Messages travel as google.protobuf.Struct so clients need no generated
// stubs; the field names are listed on FrameUpdate.
package visualiser

import (
	"fmt"
	"image"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// FrameUpdate is one classified frame as seen by a stream client.
//
// Wire fields: index, segment, segment_start, segment_end, active, trigger,
// foreground_fraction, largest_area and regions (a list of
// [min_x, min_y, max_x, max_y]).
type FrameUpdate struct {
	Index              int
	Segment            int
	SegmentStart       int
	SegmentEnd         int
	Active             bool
	Trigger            int
	ForegroundFraction float64
	LargestArea        float64
	Regions            []image.Rectangle
}

// UpdateFromEvent flattens a pipeline event. Masks and pixel data are not
// carried.
func UpdateFromEvent(ev pipeline.FrameEvent) FrameUpdate {
	u := FrameUpdate{
		Index:              ev.Frame.Index,
		Segment:            ev.Ordinal,
		SegmentStart:       ev.Segment.Start,
		SegmentEnd:         ev.Segment.End(),
		Active:             ev.Result.Active,
		Trigger:            ev.Result.Trigger,
		ForegroundFraction: ev.Metrics.ForegroundFraction,
	}
	if len(ev.Result.Regions) > 0 {
		u.Regions = make([]image.Rectangle, 0, len(ev.Result.Regions))
	}
	for _, c := range ev.Result.Regions {
		u.Regions = append(u.Regions, c.Bounds)
		u.LargestArea = math.Max(u.LargestArea, c.Area())
	}
	return u
}

func (u FrameUpdate) toProto() (*structpb.Struct, error) {
	regions := make([]any, 0, len(u.Regions))
	for _, r := range u.Regions {
		regions = append(regions, []any{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y})
	}
	return structpb.NewStruct(map[string]any{
		"index":               u.Index,
		"segment":             u.Segment,
		"segment_start":       u.SegmentStart,
		"segment_end":         u.SegmentEnd,
		"active":              u.Active,
		"trigger":             u.Trigger,
		"foreground_fraction": u.ForegroundFraction,
		"largest_area":        u.LargestArea,
		"regions":             regions,
	})
}

func updateFromProto(s *structpb.Struct) (FrameUpdate, error) {
	f := s.GetFields()
	if _, ok := f["index"]; !ok {
		return FrameUpdate{}, fmt.Errorf("frame update missing index")
	}
	num := func(k string) int { return int(f[k].GetNumberValue()) }
	u := FrameUpdate{
		Index:              num("index"),
		Segment:            num("segment"),
		SegmentStart:       num("segment_start"),
		SegmentEnd:         num("segment_end"),
		Active:             f["active"].GetBoolValue(),
		Trigger:            num("trigger"),
		ForegroundFraction: f["foreground_fraction"].GetNumberValue(),
		LargestArea:        f["largest_area"].GetNumberValue(),
	}
	for i, v := range f["regions"].GetListValue().GetValues() {
		c := v.GetListValue().GetValues()
		if len(c) != 4 {
			return FrameUpdate{}, fmt.Errorf("region %d has %d coordinates", i, len(c))
		}
		u.Regions = append(u.Regions, image.Rect(
			int(c[0].GetNumberValue()), int(c[1].GetNumberValue()),
			int(c[2].GetNumberValue()), int(c[3].GetNumberValue()),
		))
	}
	return u, nil
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64 `json:"frame_count"`
	SentFrames    uint64 `json:"sent_frames"`
	DroppedFrames uint64 `json:"dropped_frames"`
	ClientCount   int32  `json:"client_count"`
	Running       bool   `json:"running"`
}

func (s PublisherStats) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"frame_count":    s.FrameCount,
		"sent_frames":    s.SentFrames,
		"dropped_frames": s.DroppedFrames,
		"client_count":   s.ClientCount,
		"running":        s.Running,
	})
}

func statsFromProto(s *structpb.Struct) PublisherStats {
	f := s.GetFields()
	return PublisherStats{
		FrameCount:    uint64(f["frame_count"].GetNumberValue()),
		SentFrames:    uint64(f["sent_frames"].GetNumberValue()),
		DroppedFrames: uint64(f["dropped_frames"].GetNumberValue()),
		ClientCount:   int32(f["client_count"].GetNumberValue()),
		Running:       f["running"].GetBoolValue(),
	}
}
