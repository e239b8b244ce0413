package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

type source int

const (
	sourceNone source = iota
	sourceApollo
	sourceAbout
	sourceTeam
	sourcePostUser
)

func (s source) String() string {
	switch s {
	case sourceApollo:
		return "apollo"
	case sourceAbout:
		return "about"
	case sourceTeam:
		return "team"
	case sourcePostUser:
		return "post-user"
	}
	return "none"
}

// attribution is who hunted and who made a product, and where each came
// from.
type attribution struct {
	hunter     *model.User
	hunterFrom source
	makers     []model.User
	makersFrom source

	// madeBy is the "Made by" clause of the about section, if any.
	madeBy *madeByClause
}

// madeByClause is the part of the about section that credits makers. It
// ends at the first sentence or block boundary, or at "hunted by".
type madeByClause struct {
	text  string
	links [][]string
}

var clauseEnd = regexp.MustCompile(`(?is)</p>|</div>|</li>|<br\s*/?>|hunted\s+by|\.\s`)

func (s *Scraper) madeByClause(aboutHTML string) *madeByClause {
	m := s.site.Patterns.MadeBySection.FindStringSubmatch(aboutHTML)
	if m == nil {
		return nil
	}
	clause := m[1]
	if loc := clauseEnd.FindStringIndex(clause); loc != nil {
		clause = clause[:loc[0]]
	}
	text := clause
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(clause)); err == nil {
		text = doc.Text()
	}
	return &madeByClause{
		text:  "Made by " + textutil.CleanText(text),
		links: s.site.Patterns.ProfileLink.FindAllStringSubmatch(clause, -1),
	}
}

// credits reports whether the clause names u, by profile link or by name.
func (c *madeByClause) credits(u *model.User) bool {
	if c == nil || u == nil {
		return false
	}
	if u.Username != "" {
		for _, link := range c.links {
			if UsernameFromURL(link[1]) == u.Username {
				return true
			}
		}
	}
	return madeByMentions(c.text, u.Name)
}

// attribute resolves the hunter and makers of a product page. The
// embedded post wins; the about section, the team section and finally the
// post's submitter fill whatever is still missing.
func (s *Scraper) attribute(doc *goquery.Document, post *apollo.Post) attribution {
	var a attribution

	if post != nil {
		if post.Hunter != nil && post.Hunter.Username != "" {
			h := s.user(*post.Hunter)
			if h.ID == "" {
				h.ID = "hunter"
			}
			a.hunter, a.hunterFrom = &h, sourceApollo
		}
		for _, m := range post.Makers {
			u := s.user(m)
			if u.ID == "" {
				u.ID = "maker-" + u.Username
			}
			a.makers = append(a.makers, u)
		}
		if len(a.makers) > 0 {
			a.makersFrom = sourceApollo
		}
	}

	about := doc.Find(s.site.Selectors.AboutSection).First().Parent()
	if about.Length() > 0 {
		aboutHTML, _ := about.Html()
		a.madeBy = s.madeByClause(aboutHTML)

		if a.hunter == nil {
			if h := s.hunterFromAbout(about, aboutHTML); h != nil {
				a.hunter, a.hunterFrom = h, sourceAbout
			} else {
				s.log.Debug("no hunter in about section")
			}
		}
		if len(a.makers) == 0 {
			a.makers = s.makersFromAbout(a.madeBy)
			if len(a.makers) > 0 {
				a.makersFrom = sourceAbout
			}
		}
	}

	if a.hunter == nil {
		if h := s.hunterFromTeam(doc); h != nil {
			a.hunter, a.hunterFrom = h, sourceTeam
		}
	}

	if len(a.makers) == 0 && post != nil && post.User != nil && post.User.Username != "" {
		a.makers = []model.User{s.user(*post.User)}
		a.makersFrom = sourcePostUser
	}
	return a
}

// hunterFromAbout finds the profile link introduced by "hunted by": first
// with a pattern over the section markup, then by looking for the phrase
// shortly before each link.
func (s *Scraper) hunterFromAbout(about *goquery.Selection, aboutHTML string) *model.User {
	if m := s.site.Patterns.HuntedBy.FindStringSubmatch(aboutHTML); m != nil {
		return s.linkedUser("hunter", m[1], m[2])
	}

	lower := strings.ToLower(aboutHTML)
	var hunter *model.User
	about.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		outer, err := goquery.OuterHtml(link)
		if err != nil {
			return true
		}
		pos := strings.Index(aboutHTML, outer)
		if pos <= 0 {
			return true
		}
		phrase := strings.LastIndex(lower[:pos], "hunted by")
		if phrase == -1 || phrase <= pos-s.site.HuntedByWindow {
			return true
		}
		href, _ := link.Attr("href")
		hunter = s.linkedUser("hunter", href, link.Text())
		return false
	})
	return hunter
}

func (s *Scraper) hunterFromTeam(doc *goquery.Document) *model.User {
	var hunter *model.User
	doc.Find(s.site.Selectors.TeamSection).Find("a").EachWithBreak(func(_ int, member *goquery.Selection) bool {
		if member.Find(s.site.Selectors.HunterBadge).Length() == 0 {
			return true
		}
		href, _ := member.Attr("href")
		name := strings.TrimSpace(member.Find("div").First().Text())
		if name == "" {
			name = member.Text()
		}
		u := s.linkedUser("hunter", href, name)
		if u == nil {
			return true
		}
		u.ProfileImage, _ = member.Find("img").Attr("src")
		hunter = u
		return false
	})
	return hunter
}

// makersFromAbout collects the profile links of the "Made by" clause.
func (s *Scraper) makersFromAbout(clause *madeByClause) []model.User {
	if clause == nil {
		s.log.Debug("no made-by clause in about section")
		return nil
	}

	var makers []model.User
	seen := make(map[string]bool)
	for _, link := range clause.links {
		href, name := link[1], textutil.CleanText(link[2])
		if strings.Contains(href, "/topics/") || !strings.Contains(href, "@") {
			continue
		}
		username := UsernameFromURL(href)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true
		makers = append(makers, model.User{
			ID:         "maker-" + username,
			Name:       name,
			Username:   username,
			ProfileURL: s.site.Absolute(href),
		})
	}
	return makers
}

func (s *Scraper) linkedUser(id, href, name string) *model.User {
	name = textutil.CleanText(name)
	if href == "" || name == "" {
		return nil
	}
	return &model.User{
		ID:         id,
		Name:       name,
		Username:   UsernameFromURL(href),
		ProfileURL: s.site.Absolute(href),
	}
}

// madeByMentions reports whether text credits name in a "Made by" clause
// within the same sentence.
func madeByMentions(text, name string) bool {
	if name == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)made by\s+[^.]*?\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// hunterIsMaker decides whether the hunter may also stay listed as a maker.
// That needs confirmation either from the embedded post listing the hunter
// among its makers, or from the about section's "Made by" clause.
func (a attribution) hunterIsMaker() bool {
	if a.hunter == nil {
		return false
	}
	if a.hunterFrom == sourceApollo && a.makersFrom == sourceApollo {
		for _, m := range a.makers {
			if m.Username == a.hunter.Username {
				return true
			}
		}
	}
	return a.madeBy.credits(a.hunter)
}

// exclusiveMakers returns the makers list with the hunter removed unless
// the hunter is confirmed as a maker.
func (a attribution) exclusiveMakers() []model.User {
	if a.hunter == nil || a.hunter.Username == "" || a.hunterIsMaker() {
		return a.makers
	}
	out := make([]model.User, 0, len(a.makers))
	for _, m := range a.makers {
		if m.Username != a.hunter.Username {
			out = append(out, m)
		}
	}
	return out
}
