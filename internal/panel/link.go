package panel

import (
	"fmt"
	"strings"
)

// Synthesize собирает ссылку подключения vless/reality из настроек inbound
// и разрешённого клиента. host задаётся конфигурацией — панель и точка входа
// VPN могут жить на разных адресах.
//
// Отсутствие любого обязательного поля — ошибка, а не значение по умолчанию:
// неработающая ссылка хуже явного отказа в выдаче.
func Synthesize(inbound *Inbound, client *RemoteClient, host string) (string, error) {
	const op = "panel.Synthesize"

	if host == "" {
		return "", fmt.Errorf("%s: %w: empty host", op, ErrMalformedInbound)
	}
	if inbound.Port == 0 {
		return "", fmt.Errorf("%s: %w: missing port", op, ErrMalformedInbound)
	}
	stream, err := inbound.Stream()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrMalformedInbound, err)
	}
	pbk := stream.RealitySettings.Settings.PublicKey
	if pbk == "" {
		return "", fmt.Errorf("%s: %w: missing reality public key", op, ErrMalformedInbound)
	}
	if len(stream.RealitySettings.ServerNames) == 0 {
		return "", fmt.Errorf("%s: %w: missing server names", op, ErrMalformedInbound)
	}
	if len(stream.RealitySettings.ShortIDs) == 0 {
		return "", fmt.Errorf("%s: %w: missing short ids", op, ErrMalformedInbound)
	}
	if client.ID == "" {
		return "", fmt.Errorf("%s: %w: client without id", op, ErrMalformedInbound)
	}

	key := client.Email
	if key == "" {
		key = client.Remark
	}
	label := "VPN_" + strings.ReplaceAll(key, "@", "_")

	link := fmt.Sprintf(
		"vless://%s@%s:%d/?type=tcp&security=reality&pbk=%s&fp=random&sni=%s&sid=%s&spx=%%2F&flow=%s#%s",
		client.ID,
		host,
		inbound.Port,
		pbk,
		stream.RealitySettings.ServerNames[0],
		stream.RealitySettings.ShortIDs[0],
		client.Flow,
		label,
	)
	return link, nil
}
