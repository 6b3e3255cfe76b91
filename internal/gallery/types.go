package gallery

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// SkipReason explains why a reference image did not register an identity.
type SkipReason string

const (
	SkipNoFace        SkipReason = "no_face"
	SkipUnreadable    SkipReason = "unreadable"
	SkipMultipleFaces SkipReason = "multiple_faces"
	SkipReservedName  SkipReason = "reserved_name"
)

// Skipped is one reference image left out of the gallery.
type Skipped struct {
	File   string     `json:"file"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// ReloadReport summarizes a gallery rebuild.
type ReloadReport struct {
	Loaded   []string      `json:"loaded"`
	Skipped  []Skipped     `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

// AddResult is returned by AddPerson. Registered is false when the copied
// image produced no usable face.
type AddResult struct {
	Name       string        `json:"name"`
	File       string        `json:"file"`
	Registered bool          `json:"registered"`
	Report     *ReloadReport `json:"report"`
}

// FacePolicy picks the reference face of an image.
type FacePolicy string

const (
	// PolicyFirst takes the first detected face.
	PolicyFirst FacePolicy = "first"
	// PolicyLargest takes the face with the largest box.
	PolicyLargest FacePolicy = "largest"
	// PolicySingle rejects images that do not contain exactly one face.
	PolicySingle FacePolicy = "single"
)

func ParseFacePolicy(s string) (FacePolicy, error) {
	switch p := FacePolicy(s); p {
	case PolicyFirst, PolicyLargest, PolicySingle:
		return p, nil
	case "":
		return PolicyFirst, nil
	default:
		return "", fmt.Errorf("unknown reference face policy %q", s)
	}
}

// Select returns the chosen face, or a skip reason when none qualifies.
func (p FacePolicy) Select(faces []provider.DetectedFace) (provider.DetectedFace, SkipReason) {
	if len(faces) == 0 {
		return provider.DetectedFace{}, SkipNoFace
	}

	switch p {
	case PolicySingle:
		if len(faces) > 1 {
			return provider.DetectedFace{}, SkipMultipleFaces
		}
		return faces[0], ""
	case PolicyLargest:
		best := 0
		for i := 1; i < len(faces); i++ {
			if faces[i].BoundingBox.Area() > faces[best].BoundingBox.Area() {
				best = i
			}
		}
		return faces[best], ""
	default:
		return faces[0], ""
	}
}
