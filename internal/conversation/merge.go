package conversation

import "strings"

// MergePage folds a freshly fetched page into what is already cached.
//
// When paginating backward and a cached view exists, the page holds older
// messages and is prepended. Otherwise the page replaces the view. HasMore
// always comes from the fetch.
//
// A latest-page fetch (no cursor) replaces even when a cache entry exists.
// Prepending it would put the newest page in front of itself, duplicating
// every message it shares with the cache.
func MergePage(cached *View, fetched View, paginating bool) View {
	if cached == nil || !paginating {
		return View{Messages: cloneMessages(fetched.Messages), HasMore: fetched.HasMore}
	}
	merged := make([]Message, 0, len(fetched.Messages)+len(cached.Messages))
	merged = append(merged, fetched.Messages...)
	merged = append(merged, cached.Messages...)
	return View{Messages: merged, HasMore: fetched.HasMore}
}

// Marker describes the in-band signal that a streamed reply was produced by an
// image tool and only holds placeholder text.
type Marker struct {
	Tool      string
	ImageHost string
}

// DefaultMarker matches the backend's image generation tool output.
var DefaultMarker = Marker{Tool: "🛠️", ImageHost: "https://res.cloudinary.com/"}

// NeedsReconciliation reports whether the last message of v is a streamed tool
// result pointing at the image host.
func NeedsReconciliation(v View, m Marker) bool {
	last, ok := v.Last()
	if !ok || last.Role != RoleAssistant {
		return false
	}
	return strings.HasPrefix(last.Content, m.Tool) && strings.Contains(last.Content, m.ImageHost)
}

type identity struct {
	id      int64
	hasID   bool
	content string
}

func identityOf(m Message) identity {
	if m.ID != nil {
		return identity{id: *m.ID, hasID: true}
	}
	return identity{content: m.Content}
}

// Reconcile replaces the streamed placeholder (the last message of current)
// with the last message of refreshed, then appends the refreshed messages whose
// identity is not present yet, in refreshed order. Identity is the id when
// present, the raw content otherwise. HasMore comes from refreshed.
func Reconcile(current, refreshed View) View {
	updated := cloneMessages(current.Messages)
	if last, ok := refreshed.Last(); ok && len(updated) > 0 {
		updated[len(updated)-1] = last
	}

	seen := make(map[identity]struct{}, len(updated))
	for _, m := range updated {
		seen[identityOf(m)] = struct{}{}
	}
	for _, m := range refreshed.Messages {
		if _, ok := seen[identityOf(m)]; ok {
			continue
		}
		updated = append(updated, m)
	}
	return View{Messages: updated, HasMore: refreshed.HasMore}
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return []Message{}
	}
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
