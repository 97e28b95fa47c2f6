package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/merik2009/vpn-shop-bot/internal/models"
)

// Префиксы и значения callback-данных инлайн-клавиатур.
const (
	callbackTypePrefix = "type:"
	callbackPlanPrefix = "plan:"
	callbackPay        = "pay"
)

// typeKeyboard строит клавиатуру выбора типа подключения.
func typeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ct := range models.ConnectionTypes {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(ct, callbackTypePrefix+ct),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// payKeyboard строит клавиатуру с кнопкой оплаты выбранного тарифа.
func payKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Оплатить выбранный тариф", callbackPay),
	))
}

// planKeyboard строит клавиатуру выбора тарифа из каталога.
func planKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, plan := range models.Catalog {
		label := plan.Name + " — " + formatPrice(plan.Price)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackPlanPrefix+plan.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
