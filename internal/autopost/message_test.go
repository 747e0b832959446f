package autopost

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestComposeTextRegular(t *testing.T) {
	t.Parallel()

	p := catalog.Product{
		Name:         "Чехол для AirPods",
		DisplayPrice: dec(t, "1100"),
		Description:  "Мягкий силиконовый чехол.",
		Stock:        catalog.StockIn,
	}

	text := composeText(p, decimal.Zero)
	require.Contains(t, text, "📦 Чехол для AirPods")
	require.Contains(t, text, "💰 Ціна: 1100 грн")
	require.Contains(t, text, "📝 Опис:\nМягкий силиконовый чехол.")
	require.Contains(t, text, "📦 Наявність: В наявності")
	require.NotContains(t, text, "ЗНИЖКА")
}

func TestComposeTextDiscount(t *testing.T) {
	t.Parallel()

	p := catalog.Product{
		Name:         "Чехол",
		DisplayPrice: dec(t, "380"),
		Stock:        catalog.StockIn,
	}

	text := composeText(p, dec(t, "120"))
	require.Contains(t, text, "🔥 ЗНИЖКА! Стара ціна: 500 грн")
	require.Contains(t, text, "💰 Нова ціна: 380 грн")
	require.Contains(t, text, "📉 Економія: 120 грн!")
}

func TestComposeTextOmitsEmptyDescription(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Name: "Чехол", DisplayPrice: dec(t, "100"), Stock: catalog.StockIn}
	text := composeText(p, decimal.Zero)
	require.NotContains(t, text, "📝 Опис")
}

func TestTruncateSentences(t *testing.T) {
	t.Parallel()

	t.Run("keeps whole text under limit", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "Одно. Два.", truncateSentences("Одно. Два.", 100))
	})

	t.Run("cuts at sentence boundary", func(t *testing.T) {
		t.Parallel()
		text := "Первое предложение. Второе предложение. Третье предложение."
		got := truncateSentences(text, 45)
		require.Equal(t, "Первое предложение. Второе предложение.", got)
	})

	t.Run("first sentence over limit yields empty", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "", truncateSentences(strings.Repeat("а", 50)+".", 10))
	})

	t.Run("handles text without terminators", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "просто текст", truncateSentences("просто текст", 100))
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "", truncateSentences("", 100))
	})
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "Раз. Два! Три?", []string{"Раз.", "Два!", "Три?"}},
		{"decimal point not a boundary", "Вес 1.5 кг. Цвет черный.", []string{"Вес 1.5 кг.", "Цвет черный."}},
		{"unterminated tail kept", "Раз. Два", []string{"Раз.", "Два"}},
		{"empty", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, splitSentences(tc.in))
		})
	}
}

func TestValidImages(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Images: []string{
		"https://cdn.example/a.jpg",
		"http://cdn.example/b.jpg",
		"ftp://cdn.example/c.jpg",
		"a.jpg",
		"  https://cdn.example/d.jpg  ",
		"",
	}}

	got := validImages(p, 10)
	require.Equal(t, []string{
		"https://cdn.example/a.jpg",
		"http://cdn.example/b.jpg",
		"https://cdn.example/d.jpg",
	}, got)
}

func TestValidImagesCap(t *testing.T) {
	t.Parallel()

	var urls []string
	for i := 0; i < 15; i++ {
		urls = append(urls, "https://cdn.example/img.jpg")
	}
	got := validImages(catalog.Product{Images: urls}, maxImages)
	require.Len(t, got, maxImages)
}
