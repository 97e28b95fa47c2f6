package models

// ConnectionTypes перечисляет поддерживаемые протоколы подключения.
// Первый элемент — рекомендуемый.
var ConnectionTypes = []string{"vless", "vmess", "trojan"}

// Catalog — статический каталог тарифов. Цены в копейках.
var Catalog = []Plan{
	{ID: "basic", Name: "Базовый", Price: 29900, PeriodDays: 30},
	{ID: "standard", Name: "Стандартный", Price: 79900, PeriodDays: 90},
	{ID: "premium", Name: "Премиум", Price: 249000, PeriodDays: 365},
}

// FindPlan возвращает тариф по идентификатору, nil — если такого тарифа нет.
func FindPlan(id string) *Plan {
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i]
		}
	}
	return nil
}

// ValidConnectionType сообщает, поддерживается ли протокол подключения.
func ValidConnectionType(t string) bool {
	for _, ct := range ConnectionTypes {
		if ct == t {
			return true
		}
	}
	return false
}
