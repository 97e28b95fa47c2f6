package panel

import (
	"encoding/json"
	"fmt"
)

// apiResponse — общий конверт ответов панели.
type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// Inbound — серверная конфигурация слушателя панели. Поля Settings и
// StreamSettings приходят строками с вложенным JSON и разбираются лениво.
type Inbound struct {
	ID             int          `json:"id"`
	Port           int          `json:"port"`
	Protocol       string       `json:"protocol"`
	Remark         string       `json:"remark"`
	Settings       string       `json:"settings"`
	StreamSettings string       `json:"streamSettings"`
	ClientStats    []ClientStat `json:"clientStats"`
}

// RemoteClient — запись клиента внутри inbound. Источник истины — панель,
// локально хранится только проекция. Идентичность клиента ключуется
// неоднозначно: панель выставляет её то в email, то в remark.
type RemoteClient struct {
	ID         string `json:"id"`
	Flow       string `json:"flow"`
	Email      string `json:"email"`
	Remark     string `json:"remark,omitempty"`
	Comment    string `json:"comment,omitempty"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	TgID       string `json:"tgId"`
	SubID      string `json:"subId"`
	Reset      int    `json:"reset"`
	Up         int64  `json:"up,omitempty"`
	Down       int64  `json:"down,omitempty"`
}

// ClientStat — счётчики трафика клиента из среза clientStats inbound'а.
type ClientStat struct {
	Email      string `json:"email"`
	Up         int64  `json:"up"`
	Down       int64  `json:"down"`
	Total      int64  `json:"total"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
}

type inboundSettings struct {
	Clients []RemoteClient `json:"clients"`
}

// StreamSettings — разобранные сетевые настройки inbound, из которых
// собирается ссылка подключения.
type StreamSettings struct {
	Network         string `json:"network"`
	Security        string `json:"security"`
	RealitySettings struct {
		ServerNames []string `json:"serverNames"`
		ShortIDs    []string `json:"shortIds"`
		Settings    struct {
			PublicKey string `json:"publicKey"`
		} `json:"settings"`
	} `json:"realitySettings"`
}

// Clients разбирает вложенный JSON поля Settings и возвращает клиентов inbound.
func (in *Inbound) Clients() ([]RemoteClient, error) {
	const op = "panel.Inbound.Clients"
	var s inboundSettings
	if err := json.Unmarshal([]byte(in.Settings), &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Clients, nil
}

// Stream разбирает вложенный JSON поля StreamSettings.
func (in *Inbound) Stream() (*StreamSettings, error) {
	const op = "panel.Inbound.Stream"
	var s StreamSettings
	if err := json.Unmarshal([]byte(in.StreamSettings), &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}
