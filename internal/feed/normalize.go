package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/kennygrant/sanitize"
	"github.com/shopspring/decimal"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	quoteTrimSet  = ` "'`
)

// minMarkup is the margin applied when the supplier's suggested retail price
// sits too close to the wholesale price.
var (
	minMargin       = decimal.NewFromInt(500)
	suggestedMarkup = decimal.NewFromInt(200)
)

// inStockTokens is the vocabulary of raw stock values that mean "available",
// matched as case-insensitive substrings.
var inStockTokens = []string{"instock", "в наличии", "+", "да", "true", "1", "yes", "є", "есть"}

// cleanDescription strips HTML markup, unescapes entities and collapses
// whitespace runs to single spaces.
func cleanDescription(raw string) string {
	text := sanitize.HTML(raw)
	text = html.UnescapeString(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// parsePrice tolerantly parses a feed price field. Comma decimal separators,
// embedded spaces and surrounding quotes are accepted; anything unparseable
// yields zero.
func parsePrice(raw string) decimal.Decimal {
	s := strings.Trim(raw, quoteTrimSet)
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseStock classifies the heterogeneous raw stock field. Classification
// order: numeric count, in-stock vocabulary, "greater-than" expression,
// otherwise out of stock.
func parseStock(raw string) catalog.StockStatus {
	s := strings.ToLower(strings.Trim(raw, quoteTrimSet))
	if s == "" {
		return catalog.StockOut
	}
	if isDigits(s) {
		if strings.Trim(s, "0") == "" {
			return catalog.StockOut
		}
		return catalog.StockIn
	}
	for _, token := range inStockTokens {
		if strings.Contains(s, token) {
			return catalog.StockIn
		}
	}
	if strings.ContainsAny(s, ">≥") && strings.ContainsAny(s, "0123456789") {
		return catalog.StockIn
	}
	return catalog.StockOut
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// parseImages splits the raw image field on the first delimiter found among
// the priority list, dropping empty segments and duplicates. Without a
// delimiter the whole trimmed value is a single URL.
func parseImages(raw string) []string {
	s := strings.Trim(raw, quoteTrimSet)
	if s == "" {
		return nil
	}
	for _, delim := range []string{",", ";", "|"} {
		if !strings.Contains(s, delim) {
			continue
		}
		var urls []string
		seen := make(map[string]struct{})
		for _, part := range strings.Split(s, delim) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			urls = append(urls, part)
		}
		return urls
	}
	return []string{s}
}

// displayPrice derives the channel price from the wholesale price and the
// supplier's suggested retail price. When the suggested margin is under 500
// the wholesale price is padded to a 500 margin; otherwise the suggested
// price is marked up by 200. Rounded to whole currency units.
func displayPrice(wholesale, suggested decimal.Decimal) decimal.Decimal {
	if suggested.Sub(wholesale).LessThan(minMargin) {
		return wholesale.Add(minMargin).Round(0)
	}
	return suggested.Add(suggestedMarkup).Round(0)
}
