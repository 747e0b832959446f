package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

const feedHeader = "Название товара,Артикул,Описание товара,Дроп цена для партнера," +
	"Рекомендовання розничная цена,Наличие,Изображения,Категории товара,Подкатегории"

func writeFeed(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uploads.csv")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseUTF8Feed(t *testing.T) {
	t.Parallel()

	csvData := feedHeader + "\n" +
		"Чехол для AirPods,CH-101,<p>Мягкий чехол</p>,350,900,в наличии,https://cdn.example/a.jpg;https://cdn.example/b.jpg,Аксессуары,Чехлы\n" +
		"Кабель USB-C,KB-55,,120,0,0,,Кабели,\n"

	parser := NewParser("", zap.NewNop())
	products, stats, err := parser.Parse(writeFeed(t, []byte(csvData)))
	require.NoError(t, err)

	require.Equal(t, 2, stats.TotalRows)
	require.Equal(t, 2, stats.Admitted)
	require.Len(t, products, 2)

	first := products[0]
	require.Equal(t, "Чехол для AirPods", first.Name)
	require.Equal(t, "CH-101", first.Article)
	require.Equal(t, "Мягкий чехол", first.Description)
	require.Equal(t, "350", first.WholesalePrice.String())
	require.Equal(t, "1100", first.DisplayPrice.String())
	require.Equal(t, catalog.StockIn, first.Stock)
	require.Equal(t, []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, first.Images)
	require.Equal(t, "Аксессуары", first.Category)
	require.Equal(t, "Чехлы", first.Subcategory)

	second := products[1]
	require.Equal(t, catalog.StockOut, second.Stock)
	require.Equal(t, "620", second.DisplayPrice.String())
	require.Nil(t, second.Images)
}

func TestParseWindows1251Feed(t *testing.T) {
	t.Parallel()

	csvData := feedHeader + "\n" +
		"Чехол для AirPods,CH-101,Описание,350,900,в наличии,,Аксессуары,\n"
	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte(csvData))
	require.NoError(t, err)

	parser := NewParser("", zap.NewNop())
	products, stats, err := parser.Parse(writeFeed(t, encoded))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Admitted)
	require.Equal(t, "Чехол для AirPods", products[0].Name)
	require.Equal(t, catalog.StockIn, products[0].Stock)
}

func TestParseSkipsEmptyNames(t *testing.T) {
	t.Parallel()

	csvData := feedHeader + "\n" +
		",SK-1,описание,100,0,1,,Категория,\n" +
		"Товар,SK-2,,100,0,1,,Категория,\n"

	parser := NewParser("", zap.NewNop())
	products, stats, err := parser.Parse(writeFeed(t, []byte(csvData)))
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalRows)
	require.Equal(t, 1, stats.EmptyName)
	require.Equal(t, 1, stats.Admitted)
	require.Len(t, products, 1)
	require.Equal(t, "Товар", products[0].Name)
}

func TestParseExcludesCategoriesByTerm(t *testing.T) {
	t.Parallel()

	csvData := feedHeader + "\n" +
		"Pod система,EL-1,,500,0,1,,Электронки,\n" +
		"Чехол,CH-1,,100,0,1,,Аксессуары,\n"

	parser := NewParser("электронки", zap.NewNop())
	products, stats, err := parser.Parse(writeFeed(t, []byte(csvData)))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Excluded)
	require.Equal(t, 1, stats.Admitted)
	require.Len(t, products, 1)
	require.Equal(t, "Чехол", products[0].Name)
}

func TestParseStripsHeaderBOM(t *testing.T) {
	t.Parallel()

	csvData := "\ufeff" + feedHeader + "\n" +
		"Товар,AR-1,,100,0,1,,Категория,\n"

	parser := NewParser("", zap.NewNop())
	products, _, err := parser.Parse(writeFeed(t, []byte(csvData)))
	require.NoError(t, err)
	require.Len(t, products, 1)
}

func TestParseRejectsUnrecognizedHeader(t *testing.T) {
	t.Parallel()

	csvData := "name,price\nwidget,10\n"

	parser := NewParser("", zap.NewNop())
	_, _, err := parser.Parse(writeFeed(t, []byte(csvData)))
	require.ErrorIs(t, err, ErrNoUsableEncoding)
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	parser := NewParser("", zap.NewNop())
	_, _, err := parser.Parse(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
