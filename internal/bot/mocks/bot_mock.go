// Package mocks содержит подмену Telegram API для тестов бота.
package mocks

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI операции Telegram, которые использует бот.
// Интерфейс объявлен здесь, чтобы mocks не импортировал пакет bot.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// SentMessage отправленное сообщение
type SentMessage struct {
	ChatID      any
	Text        string
	ReplyMarkup models.ReplyMarkup
}

var _ TelegramAPI = (*MockBot)(nil)

// MockBot запоминает отправленные сообщения
type MockBot struct {
	mu sync.RWMutex

	SentMessages []SentMessage

	// SendMessageError ошибка для всех отправок
	SendMessageError error
	// FailChats ошибки отправки для отдельных чатов
	FailChats map[int64]error

	nextMessageID int
}

// NewMockBot создает MockBot
func NewMockBot() *MockBot {
	return &MockBot{
		FailChats:     make(map[int64]error),
		nextMessageID: 1000,
	}
}

// SendMessage запоминает сообщение или возвращает заданную ошибку
func (m *MockBot) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}

	chatID, _ := params.ChatID.(int64)
	if err, ok := m.FailChats[chatID]; ok {
		return nil, err
	}

	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:      params.ChatID,
		Text:        params.Text,
		ReplyMarkup: params.ReplyMarkup,
	})

	m.nextMessageID++
	return &models.Message{
		ID:   m.nextMessageID,
		Chat: models.Chat{ID: chatID},
		Text: params.Text,
	}, nil
}

// SentMessageCount число отправленных сообщений
func (m *MockBot) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

// LastSentMessage последнее сообщение или nil
func (m *MockBot) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentMessages) == 0 {
		return nil
	}
	msg := m.SentMessages[len(m.SentMessages)-1]
	return &msg
}

// MessagesTo сообщения в конкретный чат
func (m *MockBot) MessagesTo(chatID int64) []SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SentMessage
	for _, msg := range m.SentMessages {
		if id, ok := msg.ChatID.(int64); ok && id == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// Reset очищает историю
func (m *MockBot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = nil
}

// NewTextUpdate создает update с текстовым сообщением
func NewTextUpdate(chatID int64, username, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID: 1,
			Chat: models.Chat{
				ID:   chatID,
				Type: "private",
			},
			From: &models.User{
				ID:        chatID,
				FirstName: "Test",
				Username:  username,
			},
			Text: text,
		},
	}
}
