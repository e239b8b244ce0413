package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/model"
)

const maxFilterTopics = 9

type filterBar struct {
	topics       []model.Topic // Slug always set
	active       map[string]bool
	filterMode   bool
	filterCursor int
}

func (f *filterBar) setTopics(topics []model.Topic) {
	f.topics = topics
	if f.filterCursor >= len(topics) {
		f.filterCursor = 0
	}
}

func (f *filterBar) toggle(slug string) {
	if f.active == nil {
		f.active = make(map[string]bool)
	}
	if f.active[slug] {
		delete(f.active, slug)
	} else {
		f.active[slug] = true
	}
}

func (f *filterBar) toggleCurrent() {
	if f.filterCursor < len(f.topics) {
		f.toggle(f.topics[f.filterCursor].Slug)
	}
}

func (f *filterBar) activeSlugs() []string {
	if len(f.active) == 0 {
		return nil // nil = all topics
	}
	var out []string
	for _, t := range f.topics {
		if f.active[t.Slug] {
			out = append(out, t.Slug)
		}
	}
	return out
}

func (f *filterBar) activeLabel() string {
	if len(f.active) == 0 {
		return "All"
	}
	var names []string
	for _, t := range f.topics {
		if f.active[t.Slug] {
			names = append(names, t.Name)
		}
	}
	return strings.Join(names, ", ")
}

// topTopics returns the n most common topics across entries, ties broken by
// name.
func topTopics(entries []cache.Entry, n int) []model.Topic {
	counts := make(map[string]int)
	bySlug := make(map[string]model.Topic)
	for _, e := range entries {
		for _, t := range e.Product.Topics {
			slug := model.GenerateTopicSlug(t)
			if slug == "" {
				continue
			}
			if _, ok := bySlug[slug]; !ok {
				t.Slug = slug
				bySlug[slug] = t
			}
			counts[slug]++
		}
	}

	out := make([]model.Topic, 0, len(bySlug))
	for _, t := range bySlug {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := counts[out[i].Slug], counts[out[j].Slug]
		if ci != cj {
			return ci > cj
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (f *filterBar) render(width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string

	if len(f.active) == 0 {
		parts = append(parts, tabActiveStyle.Render("All"))
	} else {
		parts = append(parts, tabInactiveStyle.Render("All"))
	}

	for i, t := range f.topics {
		style := tabInactiveStyle
		if f.active[t.Slug] {
			style = tabActiveStyle
		}
		label := t.Name
		if f.filterMode && i == f.filterCursor {
			label = "[" + t.Name + "]"
		}
		parts = append(parts, style.Render(label))
	}

	// Build row with · separators, stopping when we'd exceed width
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
