package domain

// Viewport is the initial map camera state.
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoomLevel"`
	Pitch     float64 `json:"pitch"`
}

// ComputeViewport centers the camera on b and picks a zoom level from the
// larger of its width and height, in degrees. b must be finite.
func ComputeViewport(b BoundingBox) Viewport {
	span := b.Width()
	if h := b.Height(); h > span {
		span = h
	}

	return Viewport{
		Latitude:  (b.MinY + b.MaxY) / 2,
		Longitude: (b.MinX + b.MaxX) / 2,
		Zoom:      ZoomForSpan(span),
		Pitch:     0,
	}
}

// ZoomForSpan maps a span in degrees to a web-map zoom level.
func ZoomForSpan(span float64) float64 {
	switch {
	case span <= 0:
		return 12
	case span < 0.05:
		return 13
	case span < 0.5:
		return 10
	case span < 1:
		return 9
	case span < 5:
		return 8
	case span < 10:
		return 7
	case span < 25:
		return 6
	case span < 60:
		return 5
	default:
		return 4
	}
}
