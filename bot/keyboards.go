package bot

import (
	tgmodels "github.com/go-telegram/bot/models"
)

// Button labels. The bot is driven by reply keyboards, not inline queries,
// so these texts double as the routing table.
const (
	buttonToday        = "Heute"
	buttonTomorrow     = "Morgen"
	buttonInTwoDays    = "In 2 Tagen"
	buttonInThreeDays  = "In 3 Tagen"
	buttonReservations = "Reservierungen"
	buttonLogin        = "Login"
	buttonTimes        = "Zeiten"
	buttonStatistics   = "Statistiken"
	buttonCancel       = "Abbrechen"
	buttonNewLogin     = "Neu einloggen"
)

var dayButtons = []string{buttonToday, buttonTomorrow, buttonInTwoDays, buttonInThreeDays}

// dayDeltaForLabel maps a day button to its offset from today, -1 for
// anything else.
func dayDeltaForLabel(text string) int {
	for delta, label := range dayButtons {
		if text == label {
			return delta
		}
	}
	return -1
}

func buttonRow(labels ...string) []tgmodels.KeyboardButton {
	row := make([]tgmodels.KeyboardButton, len(labels))
	for i, label := range labels {
		row[i] = tgmodels.KeyboardButton{Text: label}
	}
	return row
}

// mainKeyboard is the resting keyboard; logged-in users see their account
// row, everyone else a login button.
func mainKeyboard(loggedIn bool) tgmodels.ReplyMarkup {
	rows := [][]tgmodels.KeyboardButton{
		buttonRow(dayButtons...),
	}
	if loggedIn {
		rows = append(rows, buttonRow(buttonReservations))
	} else {
		rows = append(rows, buttonRow(buttonLogin))
	}
	rows = append(rows, buttonRow(buttonTimes, buttonStatistics))
	return &tgmodels.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

func daytimeKeyboard(names []string) tgmodels.ReplyMarkup {
	rows := make([][]tgmodels.KeyboardButton, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, buttonRow(name))
	}
	rows = append(rows, buttonRow(buttonCancel))
	return &tgmodels.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

func cancelKeyboard() tgmodels.ReplyMarkup {
	return &tgmodels.ReplyKeyboardMarkup{
		Keyboard:       [][]tgmodels.KeyboardButton{buttonRow(buttonCancel)},
		ResizeKeyboard: true,
	}
}

func captchaKeyboard(offerNewLogin bool) tgmodels.ReplyMarkup {
	var rows [][]tgmodels.KeyboardButton
	if offerNewLogin {
		rows = append(rows, buttonRow(buttonNewLogin))
	}
	rows = append(rows, buttonRow(buttonCancel))
	return &tgmodels.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// seatKeyboard lays seat commands out three per row.
func seatKeyboard(commands []string) tgmodels.ReplyMarkup {
	var rows [][]tgmodels.KeyboardButton
	for start := 0; start < len(commands); start += 3 {
		end := start + 3
		if end > len(commands) {
			end = len(commands)
		}
		rows = append(rows, buttonRow(commands[start:end]...))
	}
	rows = append(rows, buttonRow(buttonCancel))
	return &tgmodels.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}
