package services

import (
	"regexp"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

// Flag codes reported by ContentFilter.
const (
	FlagInappropriateLanguage = "inappropriate_language"
	FlagURL                   = "url_not_allowed"
	FlagContactInfo           = "contact_info_not_allowed"
	FlagSpam                  = "spam_detected"
	FlagExcessiveCaps         = "excessive_caps"
)

type filterRule struct {
	flag    string
	pattern *regexp.Regexp
}

// ContentFilter pre-screens reported text so moderators can triage the queue.
// It never blocks anything by itself.
type ContentFilter struct {
	rules          []filterRule
	allCapsPattern *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		allCapsPattern: regexp.MustCompile(`[A-Z]{5,}`),
	}
	for _, word := range BannedWords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err == nil {
			f.rules = append(f.rules, filterRule{flag: FlagInappropriateLanguage, pattern: re})
		}
	}
	f.rules = append(f.rules,
		filterRule{FlagURL, regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)},
		filterRule{FlagContactInfo, regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
		filterRule{FlagContactInfo, regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)},
		filterRule{FlagSpam, regexp.MustCompile(`(?i)(a{4,}|b{4,}|c{4,}|d{4,}|e{4,}|f{4,}|g{4,}|h{4,}|i{4,}|j{4,}|k{4,}|l{4,}|m{4,}|n{4,}|o{4,}|p{4,}|q{4,}|r{4,}|s{4,}|t{4,}|u{4,}|v{4,}|w{4,}|x{4,}|y{4,}|z{4,}|!{4,}|\?{4,}|\.{4,})`)},
	)
	return f
}

// FilterContent returns true for clean text, otherwise false and the first flag hit.
func (f *ContentFilter) FilterContent(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	for _, rule := range f.rules {
		if rule.pattern.MatchString(text) {
			return false, rule.flag
		}
	}
	if len(f.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, FlagExcessiveCaps
	}
	return true, ""
}
