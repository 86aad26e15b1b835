package usecase

import "github.com/vailabel/vailabel-studio-sub002/internal/export"

func (u Usecase) ListExportFormats() []export.FormatInfo {
	return export.Formats()
}
