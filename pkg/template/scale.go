// scale.go - Mapping between a background's native pixel space and the
// fixed-width editing canvas.
package template

import "fmt"

// DisplayWidth is the fixed width of the editing canvas in pixels. Stored
// field coordinates are native-space and are drawn unscaled, so previews are
// only geometrically faithful when the background's native width matches this.
const DisplayWidth = 900

// CanvasHeight computes the display canvas height that preserves the
// background's aspect ratio at the given display width. It must be recomputed
// whenever the background image resource changes.
func CanvasHeight(nativeWidth, nativeHeight, displayWidth float64) (float64, error) {
	if nativeWidth <= 0 {
		return 0, fmt.Errorf("invalid native width %v", nativeWidth)
	}
	return displayWidth * nativeHeight / nativeWidth, nil
}
