package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// Feed column headers as published by the supplier. Columns are addressed by
// name, never by position.
const (
	colName        = "Название товара"
	colArticle     = "Артикул"
	colDescription = "Описание товара"
	colWholesale   = "Дроп цена для партнера"
	colSuggested   = "Рекомендовання розничная цена"
	colStock       = "Наличие"
	colImages      = "Изображения"
	colCategory    = "Категории товара"
	colSubcategory = "Подкатегории"
)

// ErrNoUsableEncoding is returned when no candidate encoding yields a row
// set containing the expected header.
var ErrNoUsableEncoding = errors.New("feed: no candidate encoding produced the expected header")

// Stats counts row admission outcomes for one parse pass. Admitted plus the
// skip counters always sums to TotalRows.
type Stats struct {
	TotalRows int
	EmptyName int
	Excluded  int
	Admitted  int
}

// Parser turns raw feed bytes into a validated product collection. It holds
// no long-lived state; memoization lives in the catalog cache.
type Parser struct {
	excludeTerm string
	logger      *zap.Logger
}

// NewParser constructs a Parser. excludeTerm is the category exclusion term,
// matched case-insensitively; empty disables category filtering.
func NewParser(excludeTerm string, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		excludeTerm: strings.ToLower(excludeTerm),
		logger:      logger,
	}
}

// Parse reads the feed file and returns the normalized products. The upstream
// recompresses the export in either UTF-8 or Windows-1251, so candidate
// encodings are tried in order until one yields the expected header.
func (p *Parser) Parse(path string) ([]catalog.Product, Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read feed file: %w", err)
	}

	candidates := []struct {
		name string
		enc  encoding.Encoding
	}{
		{"utf-8", unicode.UTF8},
		{"windows-1251", charmap.Windows1251},
	}

	for _, candidate := range candidates {
		decoded, err := candidate.enc.NewDecoder().Bytes(raw)
		if err != nil {
			p.logger.Debug("encoding candidate failed to decode",
				zap.String("encoding", candidate.name), zap.Error(err))
			continue
		}
		products, stats, ok := p.parseRecords(string(decoded))
		if !ok {
			p.logger.Debug("encoding candidate missing expected header",
				zap.String("encoding", candidate.name))
			continue
		}
		p.logger.Info("feed parsed",
			zap.String("encoding", candidate.name),
			zap.Int("rows", stats.TotalRows),
			zap.Int("admitted", stats.Admitted),
			zap.Int("empty_names", stats.EmptyName),
			zap.Int("excluded", stats.Excluded),
		)
		metrics.ObserveParse(stats.Admitted, stats.EmptyName, stats.Excluded)
		return products, stats, nil
	}
	return nil, Stats{}, ErrNoUsableEncoding
}

// parseRecords parses decoded CSV text. ok is false when the header row does
// not contain the product-name column, which is the signal to try the next
// encoding.
func (p *Parser) parseRecords(text string) ([]catalog.Product, Stats, bool) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, Stats{}, false
	}
	columns := indexColumns(header)
	if _, ok := columns[colName]; !ok {
		return nil, Stats{}, false
	}

	var (
		products []catalog.Product
		stats    Stats
	)
	for {
		record, err := reader.Read()
		if err != nil {
			// Malformed rows are skipped, not fatal; io.EOF ends the scan.
			if errors.Is(err, csv.ErrFieldCount) {
				continue
			}
			break
		}
		stats.TotalRows++

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		name := field(colName)
		if name == "" {
			stats.EmptyName++
			continue
		}
		category := field(colCategory)
		if p.excludeTerm != "" && strings.Contains(strings.ToLower(category), p.excludeTerm) {
			stats.Excluded++
			continue
		}

		wholesale := parsePrice(field(colWholesale))
		suggested := parsePrice(field(colSuggested))
		products = append(products, catalog.Product{
			Name:           name,
			Article:        field(colArticle),
			Description:    cleanDescription(field(colDescription)),
			WholesalePrice: wholesale,
			DisplayPrice:   displayPrice(wholesale, suggested),
			Stock:          parseStock(field(colStock)),
			Images:         parseImages(field(colImages)),
			Category:       category,
			Subcategory:    field(colSubcategory),
		})
		stats.Admitted++
	}
	return products, stats, true
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}
	return columns
}
