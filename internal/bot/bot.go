// Package bot Telegram-бот курсов валют: команды пользователей и рассылка
// подписчикам по событию rates.updated.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gw-currency-rates/internal/bot/mocks"
	"gw-currency-rates/internal/cache"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/feed"
	"gw-currency-rates/internal/kafka"
	"gw-currency-rates/internal/storages"
	"github.com/sirupsen/logrus"
)

// TelegramAPI псевдоним интерфейса из mocks
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*bot.Bot)(nil)

// PriceFetcher источник цен криптовалют в долларах
type PriceFetcher interface {
	FetchUSDPrices(ctx context.Context, ids []string) (map[string]float64, error)
	FetchTopMarkets(ctx context.Context, limit int) ([]feed.MarketCoin, error)
}

// Config параметры бота
type Config struct {
	Token          string
	MainCurrencies []string
	Coins          []string
}

// Bot обработчик команд и рассылки
type Bot struct {
	tg          *bot.Bot
	api         TelegramAPI
	rates       engine.Querier
	subscribers storages.SubscriberStore
	prices      PriceFetcher
	pricesCache *cache.PricesCache
	markets     *cache.MarketsCache
	cfg         Config
	logger      *logrus.Logger
}

var _ kafka.EventHandler = (*Bot)(nil)

// New создает бота с подключением к Telegram
func New(cfg Config, rates engine.Querier, subscribers storages.SubscriberStore, prices PriceFetcher,
	pricesCache *cache.PricesCache, markets *cache.MarketsCache, logger *logrus.Logger) (*Bot, error) {
	b := newBot(nil, cfg, rates, subscribers, prices, pricesCache, markets, logger)

	tg, err := bot.New(cfg.Token, bot.WithDefaultHandler(b.defaultHandler))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b.tg = tg
	b.api = tg
	return b, nil
}

func newBot(api TelegramAPI, cfg Config, rates engine.Querier, subscribers storages.SubscriberStore, prices PriceFetcher,
	pricesCache *cache.PricesCache, markets *cache.MarketsCache, logger *logrus.Logger) *Bot {
	if len(cfg.Coins) == 0 {
		cfg.Coins = feed.DefaultCoins
	}
	return &Bot{
		api:         api,
		rates:       rates,
		subscribers: subscribers,
		prices:      prices,
		pricesCache: pricesCache,
		markets:     markets,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start запускает long polling до отмены ctx
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Telegram bot started polling")
	b.tg.Start(ctx)
	b.logger.Info("Telegram bot stopped")
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleUpdate(ctx, tgBot, update)
}

// handleUpdate разбирает команду и вызывает обработчик
func (b *Bot) handleUpdate(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	command, args := splitCommand(msg.Text)

	username := ""
	if msg.From != nil {
		username = msg.From.Username
	}
	b.logger.WithFields(logrus.Fields{
		"chat_id":  msg.Chat.ID,
		"username": username,
		"command":  command,
	}).Info("User command")

	switch command {
	case "/start":
		b.handleStart(ctx, tg, msg.Chat.ID, username)
	case "/stop":
		b.handleStop(ctx, tg, msg.Chat.ID)
	case "/help", buttonHelp:
		b.reply(ctx, tg, msg.Chat.ID, helpText)
	case "/rates", buttonRates:
		b.handleRates(ctx, tg, msg.Chat.ID)
	case "/crypto", buttonCrypto:
		b.handleCrypto(ctx, tg, msg.Chat.ID)
	case "/top":
		b.handleTop(ctx, tg, msg.Chat.ID, args)
	case "/all", buttonAll:
		b.handleAll(ctx, tg, msg.Chat.ID)
	case "/rate":
		b.handleRate(ctx, tg, msg.Chat.ID, args)
	case "/history":
		b.handleHistory(ctx, tg, msg.Chat.ID, args)
	case "/range":
		b.handleRange(ctx, tg, msg.Chat.ID, args)
	case "/convert":
		b.handleConvert(ctx, tg, msg.Chat.ID, args)
	case "/stats":
		b.handleStats(ctx, tg, msg.Chat.ID)
	default:
		b.reply(ctx, tg, msg.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

// splitCommand отделяет команду (без @botname) от аргументов.
// Текст кнопки клавиатуры возвращается целиком как команда.
func splitCommand(text string) (string, []string) {
	text = strings.TrimSpace(text)
	switch text {
	case buttonRates, buttonCrypto, buttonAll, buttonHelp:
		return text, nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}

	command := strings.ToLower(fields[0])
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	return command, fields[1:]
}

// reply отправляет сообщение с основной клавиатурой
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	if _, err := b.send(ctx, tg, chatID, text); err != nil {
		b.logger.Errorf("Failed to send message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) send(ctx context.Context, tg TelegramAPI, chatID int64, text string) (*models.Message, error) {
	return tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: mainKeyboard(),
	})
}

func mainKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: buttonRates}, {Text: buttonCrypto}},
			{{Text: buttonAll}},
			{{Text: buttonHelp}},
		},
		ResizeKeyboard:        true,
		InputFieldPlaceholder: "Выберите действие",
	}
}
