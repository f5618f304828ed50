package enrichment

import (
	"net/url"
	"strings"
)

// Traffic source labels.
const (
	SourceDirect   = "direct"
	SourceSearch   = "search"
	SourceSocial   = "social"
	SourceAI       = "ai"
	SourceEmail    = "email"
	SourceReferral = "referral"
)

// RefererClassifier labels the traffic source of a Referer header.
type RefererClassifier struct {
	// Checked in order; the first category with a matching host wins.
	categories []category
}

type category struct {
	source string
	hosts  []string
}

// NewRefererClassifier creates a classifier with the built-in host lists.
func NewRefererClassifier() *RefererClassifier {
	return &RefererClassifier{
		categories: []category{
			{SourceAI, []string{
				"chatgpt.com",
				"chat.openai.com",
				"claude.ai",
				"gemini.google.com",
				"perplexity.ai",
				"copilot.microsoft.com",
			}},
			{SourceEmail, []string{
				"mail.google.com",
				"outlook.live.com",
				"outlook.office.com",
				"mail.yahoo.com",
			}},
			{SourceSearch, []string{
				"google.com",
				"bing.com",
				"yahoo.com",
				"duckduckgo.com",
				"baidu.com",
				"yandex.ru",
				"ecosia.org",
			}},
			{SourceSocial, []string{
				"facebook.com",
				"twitter.com",
				"x.com",
				"t.co",
				"instagram.com",
				"linkedin.com",
				"lnkd.in",
				"pinterest.com",
				"reddit.com",
				"tiktok.com",
				"youtube.com",
				"threads.net",
				"mastodon.social",
			}},
		},
	}
}

// ClassifySource returns one of the Source* labels. A missing or
// unparseable referer counts as direct.
func (r *RefererClassifier) ClassifySource(referer string) string {
	if referer == "" {
		return SourceDirect
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Hostname() == "" {
		return SourceDirect
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	for _, c := range r.categories {
		for _, h := range c.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return c.source
			}
		}
	}
	return SourceReferral
}
