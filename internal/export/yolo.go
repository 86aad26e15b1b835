package export

import (
	"strconv"
	"strings"
)

const (
	yoloClassesFile = "classes.txt"
	yoloColorsFile  = "colors.txt"
)

// EncodeYOLO emits one text file per image followed by classes.txt and
// colors.txt. Only boxes are representable; everything else is counted in the
// returned Skipped.
func EncodeYOLO(s Snapshot) ([]File, Skipped) {
	reg := BuildRegistry(s, 0)
	skipped := Skipped{}
	lines := make([][]string, len(s.Images))

	s.Visit(func(i int, img Image, a Annotation) {
		if a.Type != ShapeBox {
			skipped[SkipUnsupportedShape]++
			return
		}
		tl, br, ok := boxCorners(a.Coordinates)
		if !ok {
			skipped[SkipDegenerateShape]++
			return
		}
		if img.Width == 0 || img.Height == 0 {
			skipped[SkipZeroSizeImage]++
			return
		}
		class, _ := reg.Index(a.Name)
		w := br.X - tl.X
		h := br.Y - tl.Y
		iw, ih := float64(img.Width), float64(img.Height)
		lines[i] = append(lines[i], strings.Join([]string{
			strconv.Itoa(class),
			yoloFloat((tl.X + w/2) / iw),
			yoloFloat((tl.Y + h/2) / ih),
			yoloFloat(w / iw),
			yoloFloat(h / ih),
		}, " "))
	})

	files := make([]File, 0, len(s.Images)+2)
	for i, img := range s.Images {
		files = append(files, File{
			Name: baseName(img.Name) + ".txt",
			Data: []byte(strings.Join(lines[i], "\n")),
		})
	}

	names := reg.Names()
	colors := make([]string, 0, len(names))
	for _, n := range names {
		colors = append(colors, n+":"+reg.Color(n))
	}
	files = append(files,
		File{Name: yoloClassesFile, Data: []byte(strings.Join(names, "\n"))},
		File{Name: yoloColorsFile, Data: []byte(strings.Join(colors, "\n"))},
	)
	return files, skipped
}

func yoloFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
