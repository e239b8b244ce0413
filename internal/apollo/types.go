package apollo

import "encoding/json"

// Event is one entry of the SSR transport's events array.
type Event struct {
	Type   string `json:"type"`
	Result struct {
		Data Data `json:"data"`
	} `json:"result"`
}

// Data carries whichever query result the event belongs to; at most one
// section is normally set.
type Data struct {
	Homefeed *Homefeed        `json:"homefeed"`
	Post     *Post            `json:"post"`
	Search   *SearchResults   `json:"search"`
	Topics   *TopicConnection `json:"topics"`
}

type Homefeed struct {
	Edges []struct {
		Node HomefeedSection `json:"node"`
	} `json:"edges"`
}

// HomefeedSection is a titled group on the home page, e.g. FEATURED-0.
type HomefeedSection struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Items []json.RawMessage `json:"items"`
}

// Posts decodes the Post items of the section, skipping anything else.
func (s HomefeedSection) Posts() []Post {
	return decodePosts(s.Items)
}

type SearchResults struct {
	Edges []struct {
		Node json.RawMessage `json:"node"`
	} `json:"edges"`
}

func (s SearchResults) Posts() []Post {
	raw := make([]json.RawMessage, 0, len(s.Edges))
	for _, e := range s.Edges {
		raw = append(raw, e.Node)
	}
	return decodePosts(raw)
}

type TopicConnection struct {
	Edges []struct {
		Node TopicNode `json:"node"`
	} `json:"edges"`
}

type TopicNode struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
	FollowersCount int    `json:"followersCount"`
	PostsCount     int    `json:"postsCount"`
}

// Nodes returns the topic nodes in order.
func (c *TopicConnection) Nodes() []TopicNode {
	if c == nil {
		return nil
	}
	out := make([]TopicNode, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

type UserRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

type MediaItem struct {
	URL       string `json:"url"`
	ImageUUID string `json:"imageUuid"`
	Type      string `json:"type"`
}

type Post struct {
	Typename           string           `json:"__typename"`
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Tagline            string           `json:"tagline"`
	Description        string           `json:"description"`
	Slug               string           `json:"slug"`
	ThumbnailImageUUID string           `json:"thumbnailImageUuid"`
	VotesCount         int              `json:"votesCount"`
	CommentsCount      int              `json:"commentsCount"`
	CreatedAt          string           `json:"createdAt"`
	User               *UserRef         `json:"user"`
	Hunter             *UserRef         `json:"hunter"`
	Makers             []UserRef        `json:"makers"`
	Topics             *TopicConnection `json:"topics"`
	Media              []MediaItem      `json:"media"`
	Gallery            []MediaItem      `json:"gallery"`
}

// Key identifies a post for de-duplication.
func (p Post) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Slug
}

func decodePosts(raw []json.RawMessage) []Post {
	var out []Post
	for _, r := range raw {
		var p Post
		if err := json.Unmarshal(r, &p); err != nil {
			continue
		}
		if p.Typename == "Post" {
			out = append(out, p)
		}
	}
	return out
}
