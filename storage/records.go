package storage

import (
	"time"

	validator "github.com/go-playground/validator/v10"

	"epr/common"
	"epr/config"
	"epr/document"
)

//go:generate go tool go-enum --names

// ENUM(Legacy, Full)
type ProgressKind int

// Progress is reading position in a book. Records written by older versions
// carry only chapter href.
type Progress struct {
	BookID         string    `json:"bookId"`
	ChapterIdref   string    `json:"chapterIdref,omitempty"`
	ChapterHref    string    `json:"chapterHref"`
	ScrollPosition float64   `json:"scrollPosition"`
	LastReadDate   time.Time `json:"lastReadDate"`
}

func (p *Progress) Kind() ProgressKind {
	if p.ChapterIdref == "" {
		return ProgressKindLegacy
	}
	return ProgressKindFull
}

// Location returns chapter request to be resolved against loaded book.
func (p *Progress) Location() document.Request {
	if p.Kind() == ProgressKindLegacy {
		return document.Request{Href: p.ChapterHref}
	}
	return document.Request{Idref: p.ChapterIdref, Href: p.ChapterHref}
}

// Settings are reader preferences.
type Settings struct {
	FontSize   int              `json:"fontSize" validate:"min=14,max=32"`
	Theme      common.Theme     `json:"theme"`
	LineHeight float64          `json:"lineHeight" validate:"gte=1.2,lte=2.4"`
	FontFamily string           `json:"fontFamily" validate:"required"`
	Align      common.TextAlign `json:"align"`
}

// SettingsFromConfig converts configured defaults.
func SettingsFromConfig(c config.SettingsConfig) Settings {
	return Settings{
		FontSize:   c.FontSize,
		Theme:      c.Theme,
		LineHeight: c.LineHeight,
		FontFamily: c.FontFamily,
		Align:      c.Align,
	}
}

// enumChecks catches enum values which did not come through parsing.
func enumChecks(sl validator.StructLevel) {
	s, ok := sl.Current().Interface().(Settings)
	if !ok {
		return
	}
	if !s.Theme.IsValid() {
		sl.ReportError(s.Theme, "Theme", "Theme", "theme", "")
	}
	if !s.Align.IsValid() {
		sl.ReportError(s.Align, "Align", "Align", "align", "")
	}
}
