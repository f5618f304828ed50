package biz

import (
	"net"
	"strings"

	"link-runtime/internal/domain"

	ua "github.com/mileusna/useragent"
)

// Substrings of user agents of crawlers we want to recognise as well-behaved.
var knownGoodCrawlers = []string{
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"applebot",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"slackbot",
	"whatsapp",
	"telegrambot",
	"discordbot",
}

// Substrings of user agents of automation tools and generic crawlers.
var automationPatterns = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl/",
	"wget/",
	"python-requests",
	"python-urllib",
	"aiohttp",
	"go-http-client",
	"java/",
	"okhttp",
	"apache-httpclient",
	"libwww-perl",
	"headlesschrome",
	"phantomjs",
	"puppeteer",
	"playwright",
	"scrapy",
	"postmanruntime",
	"httpie",
	"node-fetch",
	"axios/",
}

// BotClassifier labels automated traffic for analytics. It never blocks a redirect.
type BotClassifier struct{}

func NewBotClassifier() *BotClassifier {
	return &BotClassifier{}
}

// Classify is pure and heuristic. A missing user agent counts as automated, and
// so does traffic from loopback or unspecified addresses (synthetic probes).
func (c *BotClassifier) Classify(userAgent, ip string) domain.BotClass {
	s := strings.ToLower(strings.TrimSpace(userAgent))
	if s == "" {
		return domain.BotClass{IsBot: true}
	}
	for _, p := range knownGoodCrawlers {
		if strings.Contains(s, p) {
			return domain.BotClass{IsBot: true, KnownGood: true}
		}
	}
	for _, p := range automationPatterns {
		if strings.Contains(s, p) {
			return domain.BotClass{IsBot: true}
		}
	}
	if ua.Parse(userAgent).Bot {
		return domain.BotClass{IsBot: true}
	}
	if parsed := net.ParseIP(ip); parsed != nil && (parsed.IsLoopback() || parsed.IsUnspecified()) {
		return domain.BotClass{IsBot: true}
	}
	return domain.BotClass{}
}
