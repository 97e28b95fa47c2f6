package bot

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// linkQR кодирует ссылку подключения в PNG с QR-кодом.
func linkQR(link string) ([]byte, error) {
	const op = "bot.linkQR"
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return png, nil
}
