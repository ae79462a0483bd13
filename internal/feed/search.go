package feed

import (
	"strings"

	"github.com/and161185/pinboard/internal/model"
	"github.com/samber/lo"
)

// Search keeps the items whose title or description contains term, ignoring case.
// A blank term returns all items. Order is preserved and items is never modified.
func Search(items []model.FeedItem, term string) []model.FeedItem {
	if strings.TrimSpace(term) == "" {
		return append([]model.FeedItem(nil), items...)
	}
	needle := strings.ToLower(term)
	return lo.Filter(items, func(it model.FeedItem, _ int) bool {
		return strings.Contains(strings.ToLower(it.Title), needle) ||
			strings.Contains(strings.ToLower(it.Description), needle)
	})
}
