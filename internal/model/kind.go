package model

import "strings"

// Family groups the detections that are consolidated together. Events of
// different families never merge.
type Family string

const (
	FamilyMotion       Family = "motion"
	FamilyPerturbation Family = "perturbation"
	FamilyWave         Family = "wave"
	FamilyIndicator    Family = "indicator"
	FamilyBlob         Family = "blob"
	FamilyTransition   Family = "transition"
	FamilyParticles    Family = "particles"
	FamilyUI           Family = "ui"
)

// Families lists every family in report order.
var Families = []Family{
	FamilyMotion,
	FamilyPerturbation,
	FamilyWave,
	FamilyIndicator,
	FamilyBlob,
	FamilyTransition,
	FamilyParticles,
	FamilyUI,
}

type Kind string

const (
	KindStatic   Kind = "static"
	KindPan      Kind = "pan"
	KindZoomIn   Kind = "zoom_in"
	KindZoomOut  Kind = "zoom_out"
	KindRotation Kind = "rotation"

	KindShakeLight    Kind = "shake_light"
	KindShakeModerate Kind = "shake_moderate"
	KindShakeStrong   Kind = "shake_strong"
	KindWave          Kind = "wave"

	KindCut         Kind = "cut"
	KindFadeIn      Kind = "fade_in"
	KindFadeOut     Kind = "fade_out"
	KindFlashBright Kind = "flash_bright"
	KindFlashDark   Kind = "flash_dark"

	KindSparkles  Kind = "sparkles"
	KindConfetti  Kind = "confetti"
	KindParticles Kind = "particles"

	KindTextBar      Kind = "text_bar"
	KindButtonSquare Kind = "button_square"
	KindSeparator    Kind = "separator"
)

const blobKindPrefix = "blob:"

// BlobKind builds the kind of a marker blob of the given color class.
func BlobKind(class string) Kind {
	return Kind(blobKindPrefix + class)
}

func (k Kind) IsBlob() bool {
	return strings.HasPrefix(string(k), blobKindPrefix)
}

// BlobClass returns the color class of a blob kind, or "" for other kinds.
func (k Kind) BlobClass() string {
	if !k.IsBlob() {
		return ""
	}
	return strings.TrimPrefix(string(k), blobKindPrefix)
}

func (k Kind) IsZoom() bool {
	return k == KindZoomIn || k == KindZoomOut
}

// ShakeSeverity orders shake kinds; non-shake kinds are 0.
func (k Kind) ShakeSeverity() int {
	switch k {
	case KindShakeLight:
		return 1
	case KindShakeModerate:
		return 2
	case KindShakeStrong:
		return 3
	default:
		return 0
	}
}

type PanAxis string

const (
	PanAxisNone       PanAxis = ""
	PanAxisHorizontal PanAxis = "horizontal"
	PanAxisVertical   PanAxis = "vertical"
)
