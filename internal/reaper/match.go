package reaper

import "strings"

// matchArticle reports the first known article embedded in the post text.
// Matching is plain substring containment, which can false-positive when one
// article is a prefix of another; the policy lives here so it can be
// hardened (token-boundary matching) without touching the sweep loop.
func matchArticle(text string, known []string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, article := range known {
		if article == "" {
			continue
		}
		if strings.Contains(text, article) {
			return article, true
		}
	}
	return "", false
}
