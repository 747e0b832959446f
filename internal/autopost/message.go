package autopost

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

// descriptionLimit is the caption budget left for the description once the
// price block is accounted for; Telegram caps captions at 1024 characters.
const descriptionLimit = 800

// maxImages caps how many photos one listing may carry.
const maxImages = 10

// composeText renders the channel post body. When discount is non-zero the
// price block highlights the drop with the reconstructed old price.
func composeText(p catalog.Product, discount decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 %s\n\n", p.Name)

	if discount.IsPositive() {
		oldPrice := p.DisplayPrice.Add(discount)
		fmt.Fprintf(&b, "🔥 ЗНИЖКА! Стара ціна: %s грн\n", oldPrice)
		fmt.Fprintf(&b, "💰 Нова ціна: %s грн\n", p.DisplayPrice)
		fmt.Fprintf(&b, "📉 Економія: %s грн!\n\n", discount)
	} else {
		fmt.Fprintf(&b, "💰 Ціна: %s грн\n\n", p.DisplayPrice)
	}

	if desc := truncateSentences(p.Description, descriptionLimit); desc != "" {
		fmt.Fprintf(&b, "📝 Опис:\n%s\n\n", desc)
	}

	availability := "В наявності"
	if !p.InStock() {
		availability = "Немає в наявності"
	}
	fmt.Fprintf(&b, "📦 Наявність: %s", availability)
	return b.String()
}

// truncateSentences keeps whole sentences until adding the next one would
// exceed the limit (counted in runes).
func truncateSentences(text string, limit int) string {
	var (
		b     strings.Builder
		total int
	)
	for _, sentence := range splitSentences(text) {
		length := len([]rune(sentence))
		if total+length > limit {
			break
		}
		b.WriteString(sentence)
		b.WriteString(" ")
		total += length + 1
	}
	return strings.TrimSpace(b.String())
}

// splitSentences cuts text after `.`, `!` or `?` followed by whitespace.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		if end < len(runes) && runes[end] != ' ' && runes[end] != '\t' && runes[end] != '\n' {
			continue
		}
		sentences = append(sentences, strings.TrimSpace(string(runes[start:end])))
		for end < len(runes) && (runes[end] == ' ' || runes[end] == '\t' || runes[end] == '\n') {
			end++
		}
		start = end
		i = end - 1
	}
	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

// validImages returns up to max syntactically valid http(s) URLs from the
// product's image list.
func validImages(p catalog.Product, max int) []string {
	var out []string
	for _, raw := range p.Images {
		if len(out) == max {
			break
		}
		clean := strings.Trim(raw, " \"'\t\n\r")
		u, err := url.Parse(clean)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		out = append(out, clean)
	}
	return out
}
