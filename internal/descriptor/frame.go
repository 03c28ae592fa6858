package descriptor

// Issue describes why a captured face is not usable as a sample.
type Issue string

const (
	IssueNone         Issue = ""
	IssueNoFace       Issue = "no-face"
	IssueOutsideFrame Issue = "outside-frame"
	IssueTooSmall     Issue = "too-small"
	IssueTooLarge     Issue = "too-large"
)

// Biometric frame proportions relative to the captured image.
const (
	frameWidthRatio        = 0.58
	frameHeightRatio       = 0.7
	mobileFrameWidthRatio  = 0.72
	mobileFrameHeightRatio = 0.74
	mobileMaxWidth         = 520
)

// Face size limits relative to the frame, and the share of the face that must lie inside it.
const (
	minFaceToFrame = 0.35
	maxFaceToFrame = 0.95
	minContainment = 0.9
)

// FrameRect returns the centred biometric frame for an image of the given size
// as [x1, y1, x2, y2] in pixels.
func FrameRect(width, height int) []float64 {
	widthRatio, heightRatio := frameWidthRatio, frameHeightRatio
	if width < mobileMaxWidth {
		widthRatio, heightRatio = mobileFrameWidthRatio, mobileFrameHeightRatio
	}

	w := float64(width) * widthRatio
	h := float64(height) * heightRatio
	left := (float64(width) - w) / 2
	top := (float64(height) - h) / 2
	return []float64{left, top, left + w, top + h}
}

// CheckFrame grades a detected face bounding box [x1, y1, x2, y2] against the
// biometric frame of a width x height image.
func CheckFrame(bbox []float64, width, height int) Issue {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return IssueNoFace
	}

	frame := FrameRect(width, height)
	if Containment(bbox, frame) < minContainment {
		return IssueOutsideFrame
	}

	faceW := bbox[2] - bbox[0]
	faceH := bbox[3] - bbox[1]
	frameW := frame[2] - frame[0]
	frameH := frame[3] - frame[1]

	if faceW < frameW*minFaceToFrame && faceH < frameH*minFaceToFrame {
		return IssueTooSmall
	}
	if faceW > frameW*maxFaceToFrame || faceH > frameH*maxFaceToFrame {
		return IssueTooLarge
	}
	return IssueNone
}

// Containment returns the share of inner's area that lies inside outer.
func Containment(inner, outer []float64) float64 {
	innerArea := area(inner)
	if innerArea <= 0 {
		return 0
	}
	return intersectionArea(inner, outer) / innerArea
}

func intersectionArea(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	return (x2 - x1) * (y2 - y1)
}

func area(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	return (bbox[2] - bbox[0]) * (bbox[3] - bbox[1])
}

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] in relative coords.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}
