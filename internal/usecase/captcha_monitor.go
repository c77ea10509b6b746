package usecase

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/pkg/metrics"
)

// Detector examines the current page to decide whether an anti-automation
// challenge is being shown.
type Detector func(page entity.PageInfo) (detected bool, source string)

// DefaultDetectors returns the standard challenge detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectChallengeURL,
		detectChallengeTitle,
		detectChallengeMarkup,
	}
}

// CaptchaMonitor runs detectors after a navigation and raises the shared
// signal when one of them fires.
type CaptchaMonitor struct {
	detectors []Detector
	signal    *CaptchaSignal
}

func NewCaptchaMonitor(signal *CaptchaSignal, detectors []Detector) *CaptchaMonitor {
	if detectors == nil {
		detectors = DefaultDetectors()
	}
	return &CaptchaMonitor{detectors: detectors, signal: signal}
}

// Detect reports whether the page is a challenge, and which detector said so.
func (m *CaptchaMonitor) Detect(page entity.PageInfo) (bool, string) {
	for _, d := range m.detectors {
		if detected, source := d(page); detected {
			m.signal.Raise()
			metrics.CaptchaChallengesTotal.WithLabelValues(source).Inc()
			return true, source
		}
	}
	return false, ""
}

// detectChallengeURL looks at the host and path only; the query string
// carries the user's search text and must not trigger detection.
func detectChallengeURL(page entity.PageInfo) (bool, string) {
	u, err := url.Parse(page.URL)
	if err != nil {
		return false, ""
	}
	loc := strings.ToLower(u.Host + u.Path)
	if strings.Contains(loc, "captcha") || strings.Contains(loc, "sorry") {
		return true, "url"
	}
	return false, ""
}

func detectChallengeTitle(page entity.PageInfo) (bool, string) {
	if strings.Contains(strings.ToLower(page.Title), "unusual traffic") {
		return true, "title"
	}
	return false, ""
}

const challengeMarkupSelector = "form#captcha-form, div.g-recaptcha, #recaptcha"

func detectChallengeMarkup(page entity.PageInfo) (bool, string) {
	if page.HTML == "" {
		return false, ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return false, ""
	}
	if doc.Find(challengeMarkupSelector).Length() > 0 {
		return true, "markup"
	}
	return false, ""
}
