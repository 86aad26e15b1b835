package export

import (
	"math"
	"strconv"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EncodePascalVOC emits one XML document per image, in image order. Coordinates
// are rounded half away from zero.
func EncodePascalVOC(s Snapshot) []File {
	byImage := s.groupByImage()
	files := make([]File, 0, len(s.Images))
	for _, img := range s.Images {
		files = append(files, File{
			Name: baseName(img.Name) + ".xml",
			Data: []byte(vocDocument(s.Project.Name, img, byImage[img.ID])),
		})
	}
	return files
}

func vocDocument(folder string, img Image, anns []Annotation) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n<annotation>")
	b.WriteString("\n  <folder>" + xmlEscaper.Replace(folder) + "</folder>")
	b.WriteString("\n  <filename>" + xmlEscaper.Replace(img.Name) + "</filename>")
	b.WriteString("\n  <size>")
	b.WriteString("\n    <width>" + strconv.FormatUint(uint64(img.Width), 10) + "</width>")
	b.WriteString("\n    <height>" + strconv.FormatUint(uint64(img.Height), 10) + "</height>")
	b.WriteString("\n    <depth>3</depth>")
	b.WriteString("\n  </size>")

	for _, a := range anns {
		b.WriteString("\n  <object>")
		b.WriteString("\n    <name>" + xmlEscaper.Replace(a.Name) + "</name>")
		b.WriteString("\n    <pose>Unspecified</pose>")
		b.WriteString("\n    <truncated>0</truncated>")
		b.WriteString("\n    <difficult>0</difficult>")
		b.WriteString("\n    <color>" + xmlEscaper.Replace(colorOf(a)) + "</color>")
		switch a.Type {
		case ShapeBox:
			if tl, br, ok := boxCorners(a.Coordinates); ok {
				b.WriteString("\n    <bndbox>")
				b.WriteString("\n      <xmin>" + roundCoord(tl.X) + "</xmin>")
				b.WriteString("\n      <ymin>" + roundCoord(tl.Y) + "</ymin>")
				b.WriteString("\n      <xmax>" + roundCoord(br.X) + "</xmax>")
				b.WriteString("\n      <ymax>" + roundCoord(br.Y) + "</ymax>")
				b.WriteString("\n    </bndbox>")
			}
		case ShapePolygon, ShapeFreeDraw:
			b.WriteString("\n    <polygon>")
			for i, p := range a.Coordinates {
				tag := "pt" + strconv.Itoa(i+1)
				b.WriteString("\n      <" + tag + ">")
				b.WriteString("\n        <x>" + roundCoord(p.X) + "</x>")
				b.WriteString("\n        <y>" + roundCoord(p.Y) + "</y>")
				b.WriteString("\n      </" + tag + ">")
			}
			b.WriteString("\n    </polygon>")
		}
		b.WriteString("\n  </object>")
	}
	b.WriteString("\n</annotation>")
	return b.String()
}

// roundCoord prints v rounded to an integer without going through int64,
// so coordinates past 2^63 keep their magnitude. It never yields "-0".
func roundCoord(v float64) string {
	r := math.Round(v)
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}
