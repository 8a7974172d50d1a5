package telegram

// Client sends plain-text messages to a Telegram chat.
// It keeps the application logic free of the bot library.
type Client interface {
	SendMessage(chatID int64, text string) error
}
