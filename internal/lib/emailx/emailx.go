// Package emailx реализует синтаксическую проверку и нормализацию email,
// которым ключуется клиент панели.
package emailx

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Valid сообщает, похожа ли строка на email. Проверка только синтаксическая,
// существование ящика не проверяется.
func Valid(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Normalize приводит email к каноническому виду для сравнения и хранения:
// обрезает пробелы и опускает регистр.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
