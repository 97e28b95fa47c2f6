package panel

import "strings"

// Resolve ищет клиента по ключу среди inbound'ов протокола vless. Сравнение
// нечувствительно к регистру и внешним пробелам и ведётся сразу по двум полям:
// email и remark — панель выставляет идентичность то в одно, то в другое поле
// в зависимости от того, каким вызовом клиент был создан.
//
// Детерминированный выбор при коллизии: побеждает первый подходящий клиент
// первого подходящего inbound. Дальнейшее разрешение неоднозначности не
// выполняется. Чистая функция без побочных эффектов.
func Resolve(inbounds []Inbound, key string) (*RemoteClient, *Inbound, error) {
	want := normalizeKey(key)
	if want == "" {
		return nil, nil, ErrNotFound
	}
	for i := range inbounds {
		in := &inbounds[i]
		if in.Protocol != "vless" {
			continue
		}
		clients, err := in.Clients()
		if err != nil {
			// inbound с нечитаемыми настройками не мешает поиску в остальных
			continue
		}
		for j := range clients {
			c := clients[j]
			if normalizeKey(c.Email) == want || normalizeKey(c.Remark) == want {
				return &c, in, nil
			}
		}
	}
	return nil, nil, ErrNotFound
}

// Stat возвращает счётчики clientStats для клиента с указанным ключом.
func Stat(in *Inbound, key string) *ClientStat {
	want := normalizeKey(key)
	for i := range in.ClientStats {
		if normalizeKey(in.ClientStats[i].Email) == want {
			return &in.ClientStats[i]
		}
	}
	return nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
