package imap

import "strings"

var textFamilySubtypes = []string{"plain", "text", "enriched", "calendar"}

func isAttachmentOrNamedInline(n *BodyStructure) bool {
	if n.Disposition == nil {
		return false
	}
	for token, params := range n.Disposition {
		t := strings.ToLower(token)
		if t == "attachment" {
			return true
		}
		if t == "inline" {
			if m, ok := params.(map[string]any); ok {
				if _, has := m["filename"]; has {
					return true
				}
			}
		}
	}
	return false
}

// FindTextPart implements the §4.H breadth-first text-part search: a map
// from subtype name ("plain", "html", ...) to the first matching leaf,
// collapsed so at most one of the plain-family subtypes survives.
func FindTextPart(root *BodyStructure) map[string]*BodyStructure {
	type queued struct{ node *BodyStructure }
	queue := []queued{{root}}
	found := map[string]*BodyStructure{}

	for len(queue) > 0 {
		cur := queue[0].node
		queue = queue[1:]
		if cur == nil {
			continue
		}

		if cur.Multipart {
			children := cur.Subparts
			if strings.EqualFold(cur.Subtype, "alternative") || strings.EqualFold(cur.Subtype, "signed") {
				next := make([]queued, 0, len(children)+len(queue))
				for _, c := range children {
					next = append(next, queued{c})
				}
				next = append(next, queue...)
				queue = next
			} else {
				for _, c := range children {
					queue = append(queue, queued{c})
				}
			}
			continue
		}

		if cur.Type != "text" {
			continue
		}
		if isAttachmentOrNamedInline(cur) {
			continue
		}
		subtype := strings.ToLower(cur.Subtype)
		switch subtype {
		case "plain", "text", "enriched", "calendar", "html":
			existing, ok := found[subtype]
			if !ok || (existing.Size == 0 && cur.Size != 0) {
				found[subtype] = cur
			}
		}
	}

	for _, name := range textFamilySubtypes {
		if winner, ok := found[name]; ok {
			for _, other := range textFamilySubtypes {
				if other != name {
					delete(found, other)
				}
			}
			found[name] = winner
			break
		}
	}
	return found
}

// BuildCIDMap implements the §4.H Content-ID index: a map from Content-ID
// (angle brackets stripped) to its owning node.
func BuildCIDMap(root *BodyStructure) map[string]*BodyStructure {
	out := map[string]*BodyStructure{}
	var walk func(n *BodyStructure)
	walk = func(n *BodyStructure) {
		if n == nil {
			return
		}
		if n.Multipart {
			for _, c := range n.Subparts {
				walk(c)
			}
			return
		}
		if n.ID != "" {
			out[strings.Trim(n.ID, "<>")] = n
		}
		if n.EmbeddedMessage != nil {
			walk(n.EmbeddedMessage)
		}
	}
	walk(root)
	return out
}
