package document

import (
	"fmt"
	"strings"

	"epr/epub"
)

// Request identifies chapter by spine idref and/or href. Either may be
// empty.
type Request struct {
	Idref string `json:"idref,omitempty"`
	Href  string `json:"href,omitempty"`
}

func (r Request) IsZero() bool {
	return r.Idref == "" && r.Href == ""
}

func (r Request) String() string {
	return fmt.Sprintf("{idref: %q, href: %q}", r.Idref, r.Href)
}

// ChapterNotFoundError carries request which could not be resolved.
type ChapterNotFoundError struct {
	Request Request
}

func (e *ChapterNotFoundError) Error() string {
	return "chapter not found: " + e.Request.String()
}

// Resolver maps chapter requests to spine entries of the model.
type Resolver struct {
	model *Model
}

func NewResolver(m *Model) *Resolver {
	return &Resolver{model: m}
}

// Resolve finds spine entry for request. Matching order, first match wins:
// exact idref, exact href, href without fragment, href containment either
// way. Containment tolerates path prefix differences between navigation and
// spine.
func (r *Resolver) Resolve(req Request) (epub.SpineItem, error) {
	spine, err := r.model.SpineItems()
	if err != nil {
		return epub.SpineItem{}, err
	}
	if item, ok := resolve(spine, req); ok {
		return item, nil
	}
	return epub.SpineItem{}, &ChapterNotFoundError{Request: req}
}

func resolve(spine []epub.SpineItem, req Request) (epub.SpineItem, bool) {
	if req.Idref != "" {
		for _, item := range spine {
			if item.Idref == req.Idref {
				return item, true
			}
		}
	}
	if req.Href == "" {
		return epub.SpineItem{}, false
	}

	for _, item := range spine {
		if item.Href == req.Href {
			return item, true
		}
	}

	bare := stripFragment(req.Href)
	if bare == "" {
		return epub.SpineItem{}, false
	}
	for _, item := range spine {
		if stripFragment(item.Href) == bare {
			return item, true
		}
	}

	for _, item := range spine {
		href := stripFragment(item.Href)
		if href == "" {
			continue
		}
		if strings.Contains(bare, href) || strings.Contains(href, bare) {
			return item, true
		}
	}
	return epub.SpineItem{}, false
}

// NextOf returns spine entry following item, false at the end.
func (r *Resolver) NextOf(item epub.SpineItem) (epub.SpineItem, bool) {
	return r.at(item.Index + 1)
}

// PreviousOf returns spine entry preceding item, false at the start.
func (r *Resolver) PreviousOf(item epub.SpineItem) (epub.SpineItem, bool) {
	return r.at(item.Index - 1)
}

// First returns the beginning of reading order.
func (r *Resolver) First() (epub.SpineItem, bool) {
	return r.at(0)
}

func (r *Resolver) at(index int) (epub.SpineItem, bool) {
	spine, err := r.model.SpineItems()
	if err != nil || index < 0 || index >= len(spine) {
		return epub.SpineItem{}, false
	}
	return spine[index], true
}

func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
