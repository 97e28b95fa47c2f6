// Package models содержит доменные структуры бота продажи VPN-доступа:
// пользователей, тарифы, платежи и зеркальное представление клиента панели.
package models

import "time"

// User представляет пользователя бота. Идентификатором служит числовой ID
// чат-платформы. Email и Link заполняются после успешной оплаты; запись
// удаляется только явным действием администратора.
type User struct {
	ID       int64  // ID пользователя в чат-платформе
	Username string // Отображаемое имя
	Email    string // Email, которым ключуется клиент в панели (может быть пустым)
	Link     string // Кэшированная ссылка подключения (может быть пустой)
	IsAdmin  bool   // Флаг администратора
}

// Plan описывает тариф из статического каталога. Неизменяем во время работы.
type Plan struct {
	ID         string // Идентификатор тарифа
	Name       string // Отображаемое название
	Price      int    // Цена в минорных единицах валюты
	PeriodDays int    // Срок действия в днях
}

// Payment представляет запись об успешной оплате. Создаётся ровно один раз
// на событие оплаты, только добавляется, никогда не изменяется.
type Payment struct {
	ID         int    // Идентификатор записи
	UserID     int64  // ID пользователя
	Email      string // Email, под которым создан клиент панели
	PlanID     string // Идентификатор тарифа
	Amount     int    // Сумма в минорных единицах
	PaidAt     int64  // Время оплаты, unix-секунды
	ExpiryTime int64  // Срок действия клиента в панели, unix-миллисекунды (0 — неизвестно)
}

// ProvisionResult объединяет поля, которые нужно сохранить как единое целое
// после выдачи ссылки: ссылку, email пользователя и строку платежа.
type ProvisionResult struct {
	UserID  int64
	Email   string
	Link    string
	Payment Payment
}

// UsageInfo — проекция состояния клиента панели для личного кабинета.
type UsageInfo struct {
	Email      string
	Enabled    bool
	UsedBytes  int64      // Суммарный трафик up+down
	TotalBytes int64      // Лимит трафика, 0 — безлимит
	ExpiresAt  *time.Time // nil — без ограничения срока
	Link       string
}

// UsageSummary — сводка по всем клиентам панели для администратора.
type UsageSummary struct {
	Total        int
	Active       int
	Inactive     int
	TrafficBytes int64
	TopByTraffic []UsageTop
}

// UsageTop — элемент топа по использованному трафику.
type UsageTop struct {
	Email     string
	UsedBytes int64
}
