package bot

import (
	"fmt"
	"time"
)

// formatPrice печатает цену из минорных единиц в рублях.
func formatPrice(minor int) string {
	if minor%100 == 0 {
		return fmt.Sprintf("%d ₽", minor/100)
	}
	return fmt.Sprintf("%d.%02d ₽", minor/100, minor%100)
}

// formatBytes печатает объём трафика в удобных единицах.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d Б", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %sБ", float64(n)/float64(div), []string{"К", "М", "Г", "Т"}[exp])
}

// formatUnix печатает unix-секунды как дату.
func formatUnix(sec int64) string {
	return time.Unix(sec, 0).Format("02.01.2006")
}
