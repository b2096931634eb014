// Package imaging provides the image preparation steps shared by the
// feature extraction pipeline.
//
// Every uploaded or queried image passes through the same normalization
// before any features are computed: decode, cover-fit resize onto a fixed
// square canvas, and (where a stage needs it) conversion to a grayscale
// luminance matrix. Normalizing to a fixed canvas is what makes feature
// vectors comparable across images of different resolutions.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with origin at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Grayscale Conversion
//
// Luminance uses the ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B)
// on 8-bit channel values, producing values in the 0-255 range.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use on distinct
// images.
package imaging
