// Package export converts a project snapshot into annotation interchange
// formats. Every encoder is a pure function of its snapshot.
package export

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

type Format string

const (
	FormatJSON      Format = "json"
	FormatCOCO      Format = "coco"
	FormatPascalVOC Format = "pascal-voc"
	FormatYOLO      Format = "yolo"
)

const (
	MimeJSON = "application/json"
	MimeZip  = "application/zip"
)

type FormatInfo struct {
	ID          Format
	Name        string
	Description string
	Extension   string
}

var formats = []FormatInfo{
	{FormatJSON, "JSON", "Project, images and annotations as nested JSON", ".json"},
	{FormatCOCO, "COCO JSON", "MS COCO format, compatible with many computer vision frameworks", ".json"},
	{FormatPascalVOC, "Pascal VOC", "XML format used by Pascal VOC dataset, one file per image", ".zip"},
	{FormatYOLO, "YOLO", "Darknet YOLO format, one text file per image with normalized coordinates", ".zip"},
}

// Formats lists the supported export formats in display order.
func Formats() []FormatInfo {
	out := make([]FormatInfo, len(formats))
	copy(out, formats)
	return out
}

func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f.ID) == strings.ToLower(strings.TrimSpace(s)) {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// MultiFile reports whether the format must be packaged into an archive.
func (f Format) MultiFile() bool {
	return f == FormatPascalVOC || f == FormatYOLO
}

func (f Format) MimeType() string {
	if f.MultiFile() {
		return MimeZip
	}
	return MimeJSON
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename builds the download name for a project export.
func (f Format) Filename(prefix string) string {
	prefix = strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(prefix), "-"), "-")
	if prefix == "" {
		prefix = "project"
	}
	switch f {
	case FormatCOCO:
		return prefix + "-coco.json"
	case FormatPascalVOC:
		return prefix + "-pascal.zip"
	case FormatYOLO:
		return prefix + "-yolo.zip"
	}
	return prefix + "-export.json"
}

type Options struct {
	// NormalizeBoxes reorders inverted box corners before encoding. When false
	// boxes are passed through as stored.
	NormalizeBoxes bool
	// Strict rejects malformed annotations with a ValidationError instead of
	// encoding them as degenerate shapes.
	Strict bool
	// Now stamps COCO info.date_created. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

type File struct {
	Name string
	Data []byte
}

type SkipReason string

const (
	SkipUnsupportedShape SkipReason = "unsupported_shape"
	SkipZeroSizeImage    SkipReason = "zero_size_image"
	SkipDegenerateShape  SkipReason = "degenerate_shape"
)

// Skipped counts annotations left out of an export, by reason.
type Skipped map[SkipReason]int

func (s Skipped) Total() int {
	var n int
	for _, v := range s {
		n += v
	}
	return n
}

type Result struct {
	Format  Format
	Files   []File
	Skipped Skipped
}

// Encode dispatches s to the encoder for f.
//
// Non-finite coordinates are rejected in every mode; no format can carry them.
func Encode(f Format, s Snapshot, opt Options) (Result, error) {
	if err := validateFinite(s); err != nil {
		return Result{}, err
	}
	if opt.Strict {
		if err := Validate(s); err != nil {
			return Result{}, err
		}
	}
	if opt.NormalizeBoxes {
		s = normalizeBoxes(s)
	}

	res := Result{Format: f, Skipped: Skipped{}}
	switch f {
	case FormatJSON:
		b, err := EncodeJSON(s)
		if err != nil {
			return Result{}, err
		}
		res.Files = []File{{Name: f.Filename(s.Project.Name), Data: b}}
	case FormatCOCO:
		b, err := EncodeCOCO(s, opt.now())
		if err != nil {
			return Result{}, err
		}
		res.Files = []File{{Name: f.Filename(s.Project.Name), Data: b}}
	case FormatPascalVOC:
		res.Files = EncodePascalVOC(s)
	case FormatYOLO:
		res.Files, res.Skipped = EncodeYOLO(s)
	default:
		return Result{}, fmt.Errorf("unsupported export format %q", f)
	}
	return res, nil
}

// Validate checks every annotation's shape.
func Validate(s Snapshot) error {
	for _, a := range s.Annotations {
		switch a.Type {
		case ShapeBox:
			if len(a.Coordinates) != 2 {
				return ValidationError{a.ID, "coordinates", fmt.Sprintf("box needs exactly 2 points, got %d", len(a.Coordinates))}
			}
		case ShapePolygon:
			if len(a.Coordinates) < 3 {
				return ValidationError{a.ID, "coordinates", fmt.Sprintf("polygon needs at least 3 points, got %d", len(a.Coordinates))}
			}
		case ShapeFreeDraw:
		default:
			return ValidationError{a.ID, "type", fmt.Sprintf("unknown shape type %q", a.Type)}
		}
	}
	return validateFinite(s)
}

func validateFinite(s Snapshot) error {
	for _, a := range s.Annotations {
		for _, p := range a.Coordinates {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				return ValidationError{a.ID, "coordinates", "non-finite coordinate"}
			}
		}
	}
	return nil
}

func normalizeBoxes(s Snapshot) Snapshot {
	anns := make([]Annotation, len(s.Annotations))
	for i, a := range s.Annotations {
		if a.Type == ShapeBox && len(a.Coordinates) >= 2 {
			pts := make([]Point, len(a.Coordinates))
			copy(pts, a.Coordinates)
			pts[0], pts[1] = NormalizeBox(pts[0], pts[1])
			a.Coordinates = pts
		}
		anns[i] = a
	}
	s.Annotations = anns
	return s
}
