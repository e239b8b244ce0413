package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/model"
)

func userNames(users []model.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		n := u.Name
		if u.Username != "" {
			n += " (@" + u.Username + ")"
		}
		names = append(names, n)
	}
	return strings.Join(names, ", ")
}

func renderPreview(e *cache.Entry, loading bool, width, height, scroll int) string {
	if e == nil {
		return lipglossCenter("Select a product", width, height)
	}
	p := e.Product

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(p.Name)
	meta := previewSourceStyle.Render(
		fmt.Sprintf("▲ %d · %d comments · %s", p.VotesCount, p.CommentsCount, p.CreatedAt.Format("Jan 2, 2006")),
	)

	sections := []string{title, meta}
	if p.Tagline != "" {
		sections = append(sections, previewBodyStyle.Width(contentWidth).Render(wrapText(p.Tagline, contentWidth)))
	}
	if topics := p.TopicNames(); len(topics) > 0 {
		sections = append(sections, previewDimStyle.Render(wrapText(strings.Join(topics, " · "), contentWidth)))
	}

	var people []string
	if p.Hunter != nil {
		people = append(people, "Hunter: "+userNames([]model.User{*p.Hunter}))
	}
	if len(p.Makers) > 0 {
		people = append(people, "Makers: "+userNames(p.Makers))
	}
	if loading {
		people = append(people, "Loading details...")
	}
	if len(people) > 0 {
		sections = append(sections, "", previewDimStyle.Render(wrapText(strings.Join(people, "\n"), contentWidth)))
	}

	if e.Summary != "" {
		summary := "AI: " + e.Summary
		if e.Tags != "" {
			summary += " [" + e.Tags + "]"
		}
		sections = append(sections, "", previewSummaryStyle.Width(contentWidth).Render(wrapText(summary, contentWidth)))
	}

	desc := p.Description
	if desc == "" {
		desc = "(No description available)"
	}
	sections = append(sections, "", previewBodyStyle.Width(contentWidth).Render(wrapText(desc, contentWidth)))

	var facts []string
	if p.DailyRank > 0 {
		facts = append(facts, fmt.Sprintf("#%d of the day", p.DailyRank))
	}
	if p.WeeklyRank > 0 {
		facts = append(facts, fmt.Sprintf("#%d of the week", p.WeeklyRank))
	}
	if n := len(p.GalleryImages); n > 0 {
		facts = append(facts, fmt.Sprintf("%d gallery images", n))
	}
	if p.PreviousLaunches > 0 {
		facts = append(facts, fmt.Sprintf("%d previous launches", p.PreviousLaunches))
	}
	if len(p.Shoutouts) > 0 {
		names := make([]string, 0, len(p.Shoutouts))
		for _, s := range p.Shoutouts {
			names = append(names, s.Name)
		}
		facts = append(facts, "Shoutouts: "+strings.Join(names, ", "))
	}
	if len(facts) > 0 {
		sections = append(sections, "", previewDimStyle.Render(wrapText(strings.Join(facts, " · "), contentWidth)))
	}

	sections = append(sections, previewLinkStyle.Width(contentWidth).Render("Open: "+p.URL))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	// Apply scroll offset
	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	// Pad to fill height
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if runewidth.StringWidth(line)+1+runewidth.StringWidth(w) > width {
				out = append(out, line)
				line = w
			} else {
				line += " " + w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
