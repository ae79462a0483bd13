package layout

import (
	"html/template"
	"sync"
)

// Icons renders named icons. Implementations are registered once at startup.
type Icons interface {
	Icon(name string) template.HTML
}

// NoIcons renders nothing. It is the fallback when no icon set is available.
type NoIcons struct{}

func (NoIcons) Icon(string) template.HTML { return "" }

// IconSet is a fixed name to markup table. Unknown names render nothing.
type IconSet map[string]template.HTML

func (s IconSet) Icon(name string) template.HTML { return s[name] }

var (
	iconsMu sync.RWMutex
	icons   Icons = NoIcons{}
)

// SetIcons installs the icon capability. A nil value restores the fallback.
func SetIcons(i Icons) {
	iconsMu.Lock()
	defer iconsMu.Unlock()
	if i == nil {
		i = NoIcons{}
	}
	icons = i
}

// Icon renders name with the installed capability.
func Icon(name string) template.HTML {
	iconsMu.RLock()
	defer iconsMu.RUnlock()
	return icons.Icon(name)
}

// DefaultIcons is the inline SVG set used by the pages.
var DefaultIcons = IconSet{
	"search": `<svg viewBox="0 0 24 24" width="20" height="20" aria-hidden="true"><circle cx="11" cy="11" r="7" fill="none" stroke="currentColor" stroke-width="2"/><path d="M20 20l-4-4" stroke="currentColor" stroke-width="2"/></svg>`,
	"close":  `<svg viewBox="0 0 24 24" width="20" height="20" aria-hidden="true"><path d="M6 6l12 12M18 6L6 18" stroke="currentColor" stroke-width="2"/></svg>`,
	"heart":  `<svg viewBox="0 0 24 24" width="20" height="20" aria-hidden="true"><path d="M12 21s-7-4.5-9.5-9A5 5 0 0 1 12 6a5 5 0 0 1 9.5 6C19 16.5 12 21 12 21z" fill="none" stroke="currentColor" stroke-width="2"/></svg>`,
	"plus":   `<svg viewBox="0 0 24 24" width="20" height="20" aria-hidden="true"><path d="M12 5v14M5 12h14" stroke="currentColor" stroke-width="2"/></svg>`,
	"trash":  `<svg viewBox="0 0 24 24" width="20" height="20" aria-hidden="true"><path d="M4 7h16M9 7V4h6v3M6 7l1 13h10l1-13" fill="none" stroke="currentColor" stroke-width="2"/></svg>`,
}
