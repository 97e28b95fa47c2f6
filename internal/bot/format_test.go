package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		minor int
		want  string
	}{
		{minor: 29900, want: "299 ₽"},
		{minor: 249000, want: "2490 ₽"},
		{minor: 10550, want: "105.50 ₽"},
		{minor: 0, want: "0 ₽"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatPrice(tc.minor))
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{n: 512, want: "512 Б"},
		{n: 2048, want: "2.0 КБ"},
		{n: 5 * 1024 * 1024, want: "5.0 МБ"},
		{n: 3 * 1024 * 1024 * 1024, want: "3.0 ГБ"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatBytes(tc.n))
	}
}

func TestKeyboards(t *testing.T) {
	tk := typeKeyboard()
	assert.Len(t, tk.InlineKeyboard, 3)
	assert.Equal(t, "type:vless", *tk.InlineKeyboard[0][0].CallbackData)

	pk := planKeyboard()
	assert.Len(t, pk.InlineKeyboard, 3)
	assert.Equal(t, "plan:basic", *pk.InlineKeyboard[0][0].CallbackData)

	pay := payKeyboard()
	assert.Len(t, pay.InlineKeyboard, 1)
	assert.Equal(t, "pay", *pay.InlineKeyboard[0][0].CallbackData)
}
