package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/feed"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
	"github.com/shopspring/decimal"
)

// Тексты кнопок основной клавиатуры
const (
	buttonRates  = "💰 Курсы валют"
	buttonCrypto = "🪙 Криптовалюты"
	buttonAll    = "📊 Все курсы"
	buttonHelp   = "ℹ️ Помощь"
)

const (
	defaultHistoryDays = 7
	maxHistoryLines    = 31
	recentEventsLimit  = 5
	defaultTopLimit    = 10
	maxTopLimit        = 100
)

const helpText = `📌 Доступные команды:

/rates - курсы основных валют
/rate USD - курс валюты со статистикой
/history USD [дни] - история курса (по умолчанию 7 дней)
/range USD 01/03/2024 05/03/2024 - история за период
/convert 100 USD EUR - конвертация по курсам ЦБ
/crypto - курсы криптовалют
/top [N] - топ N криптовалют по капитализации (по умолчанию 10)
/all - все курсы
/stats - статистика рассылки
/start - подписаться на рассылку
/stop - отписаться от рассылки
/help - показать эту справку

❗️ Рассылка приходит, когда ЦБ публикует новые курсы`

func (b *Bot) handleStart(ctx context.Context, tg TelegramAPI, chatID int64, username string) {
	now := time.Now()
	err := b.subscribers.Subscribe(ctx, &storages.Subscriber{
		ChatID:       chatID,
		Username:     username,
		Active:       true,
		SubscribedAt: now,
		UpdatedAt:    now,
	})
	if err != nil {
		b.logger.Errorf("Failed to subscribe chat %d: %v", chatID, err)
		b.reply(ctx, tg, chatID, "❌ Не удалось оформить подписку. Попробуйте позже.")
		return
	}

	b.logger.Infof("Chat %d subscribed", chatID)
	b.reply(ctx, tg, chatID, "👋 Привет!\n\n"+
		"Я бот для отслеживания курсов валют и криптовалют. "+
		"Буду присылать актуальные курсы, как только ЦБ их опубликует.\n\n"+
		"🔸 Используй кнопки меню для получения информации\n"+
		"🔸 Команда /stop - отписаться от рассылки\n"+
		"🔸 Команда /help - получить справку")
	b.handleAll(ctx, tg, chatID)
}

func (b *Bot) handleStop(ctx context.Context, tg TelegramAPI, chatID int64) {
	removed, err := b.subscribers.Unsubscribe(ctx, chatID)
	if err != nil {
		b.logger.Errorf("Failed to unsubscribe chat %d: %v", chatID, err)
		b.reply(ctx, tg, chatID, "❌ Не удалось отменить подписку. Попробуйте позже.")
		return
	}

	if !removed {
		b.reply(ctx, tg, chatID, "ℹ️ Вы уже отписаны от рассылки.\nЧтобы подписаться, используйте команду /start")
		return
	}

	b.logger.Infof("Chat %d unsubscribed", chatID)
	b.reply(ctx, tg, chatID, "✅ Вы отписались от автоматической рассылки курсов.\nЧтобы подписаться снова, используйте команду /start")
}

func (b *Bot) handleRates(ctx context.Context, tg TelegramAPI, chatID int64) {
	text, err := b.ratesBlock(ctx)
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}
	b.reply(ctx, tg, chatID, text)
}

func (b *Bot) handleCrypto(ctx context.Context, tg TelegramAPI, chatID int64) {
	text, err := b.cryptoBlock(ctx)
	if err != nil {
		b.logger.Errorf("Failed to build crypto rates: %v", err)
		b.reply(ctx, tg, chatID, "❌ Ошибка при получении курса криптовалют. Попробуйте позже.")
		return
	}
	b.reply(ctx, tg, chatID, text)
}

func (b *Bot) handleTop(ctx context.Context, tg TelegramAPI, chatID int64, args []string) {
	limit := defaultTopLimit
	if len(args) > 1 {
		b.reply(ctx, tg, chatID, "Использование: /top [N]")
		return
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxTopLimit {
			b.reply(ctx, tg, chatID, fmt.Sprintf("N должно быть числом от 1 до %d", maxTopLimit))
			return
		}
		limit = n
	}

	text, err := b.topBlock(ctx, limit)
	if err != nil {
		b.logger.Errorf("Failed to build crypto rankings: %v", err)
		b.reply(ctx, tg, chatID, "❌ Не удалось получить данные о рейтинге криптовалют.")
		return
	}
	b.reply(ctx, tg, chatID, text)
}

func (b *Bot) handleAll(ctx context.Context, tg TelegramAPI, chatID int64) {
	rates, err := b.ratesBlock(ctx)
	if err != nil {
		rates = errorText(err)
	}

	crypto, err := b.cryptoBlock(ctx)
	if err != nil {
		b.logger.Errorf("Failed to build crypto rates: %v", err)
		crypto = "❌ Ошибка при получении курса криптовалют. Попробуйте позже."
	}

	b.reply(ctx, tg, chatID, rates+"\n\n"+strings.Repeat("-", 30)+"\n\n"+crypto)
}

func (b *Bot) handleRate(ctx context.Context, tg TelegramAPI, chatID int64, args []string) {
	if len(args) != 1 {
		b.reply(ctx, tg, chatID, "Использование: /rate USD")
		return
	}

	current, err := b.rates.GetCurrent(ctx, args[0])
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}

	b.reply(ctx, tg, chatID, fmt.Sprintf(
		"💱 %s (%s) на %s\n\n"+
			"Курс: %s ₽\n"+
			"За день: %s\n"+
			"Максимум 7 дней: %s\n"+
			"Минимум 7 дней: %s\n"+
			"За 14 дней: %s\n"+
			"За 30 дней: %s",
		current.Code, current.Name, current.Date.Display(),
		pkg.FormatRate(current.Rate),
		pkg.FormatChange(current.DailyChange),
		pkg.FormatRate(current.Stats.High7d),
		pkg.FormatRate(current.Stats.Low7d),
		pkg.FormatChange(current.Stats.Change14d),
		pkg.FormatChange(current.Stats.Change30d),
	))
}

func (b *Bot) handleHistory(ctx context.Context, tg TelegramAPI, chatID int64, args []string) {
	if len(args) < 1 || len(args) > 2 {
		b.reply(ctx, tg, chatID, "Использование: /history USD [дни]")
		return
	}

	days := defaultHistoryDays
	if len(args) == 2 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			b.reply(ctx, tg, chatID, errorText(apperrors.NewFormatError("invalid days %q", args[1])))
			return
		}
		days = parsed
	}

	points, err := b.rates.GetHistory(ctx, args[0], days)
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}

	title := fmt.Sprintf("📅 %s за %d дн.", pkg.NormalizeCurrency(args[0]), days)
	b.reply(ctx, tg, chatID, formatHistory(title, points))
}

func (b *Bot) handleRange(ctx context.Context, tg TelegramAPI, chatID int64, args []string) {
	if len(args) != 3 {
		b.reply(ctx, tg, chatID, "Использование: /range USD 01/03/2024 05/03/2024")
		return
	}

	start, err := datekey.ParseDisplay(args[1])
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}
	end, err := datekey.ParseDisplay(args[2])
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}

	points, err := b.rates.GetHistoryRange(ctx, args[0], start, end)
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}

	title := fmt.Sprintf("📅 %s с %s по %s", pkg.NormalizeCurrency(args[0]), start.Display(), end.Display())
	b.reply(ctx, tg, chatID, formatHistory(title, points))
}

func (b *Bot) handleConvert(ctx context.Context, tg TelegramAPI, chatID int64, args []string) {
	if len(args) != 3 {
		b.reply(ctx, tg, chatID, "Использование: /convert 100 USD EUR")
		return
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(args[0], ",", "."))
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(apperrors.NewFormatError("invalid amount %q", args[0])))
		return
	}

	result, err := b.rates.ConvertAmount(ctx, args[1], args[2], amount.InexactFloat64())
	if err != nil {
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}

	b.reply(ctx, tg, chatID, fmt.Sprintf("🔄 %s %s = %s %s\nКурс: %s (на %s)",
		amount.String(), result.From,
		pkg.FormatRate(result.Result), result.To,
		pkg.FormatRate(result.Rate), result.Date.Display()))
}

func (b *Bot) handleStats(ctx context.Context, tg TelegramAPI, chatID int64) {
	stats, err := b.subscribers.GetStatistics(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get statistics: %v", err)
		b.reply(ctx, tg, chatID, errorText(err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика\n\nПодписчиков: %d\nСобытий обновления: %d\nОтправлено уведомлений: %d\n",
		stats.ActiveSubscribers, stats.TotalEvents, stats.TotalNotified)
	if stats.LastEventDate != "" {
		fmt.Fprintf(&sb, "Последняя дата курсов: %s\n", stats.LastEventDate)
	}

	events, err := b.subscribers.RecentEvents(ctx, recentEventsLimit)
	if err != nil {
		b.logger.Warnf("Failed to get recent events: %v", err)
	} else if len(events) > 0 {
		sb.WriteString("\nПоследние обновления:\n")
		for _, e := range events {
			fmt.Fprintf(&sb, "%s: %d валют, уведомлено %d\n", e.Date, e.Currencies, e.Notified)
		}
	}

	b.reply(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"))
}

// ratesBlock курсы основных валют; валюты без курса пропускаются
func (b *Bot) ratesBlock(ctx context.Context) (string, error) {
	var lines []string
	var date datekey.Key
	var lastErr error

	for _, code := range b.cfg.MainCurrencies {
		current, err := b.rates.GetCurrent(ctx, code)
		if err != nil {
			b.logger.Warnf("Failed to get rate for %s: %v", code, err)
			lastErr = err
			continue
		}
		date = current.Date
		lines = append(lines, fmt.Sprintf("%s %s: %s ₽ (%s)",
			current.Code, current.Name, pkg.FormatRate(current.Rate), pkg.FormatChange(current.DailyChange)))
	}

	if len(lines) == 0 {
		if lastErr == nil {
			lastErr = apperrors.NewNotFoundError("no main currencies configured")
		}
		return "", lastErr
	}

	return fmt.Sprintf("💰 Курсы ЦБ РФ на %s:\n\n%s", date.Display(), strings.Join(lines, "\n")), nil
}

// cryptoPrices цены в долларах из кеша или CoinGecko
func (b *Bot) cryptoPrices(ctx context.Context) (map[string]float64, error) {
	if prices, ok := b.pricesCache.Get(); ok {
		return prices, nil
	}

	prices, err := b.prices.FetchUSDPrices(ctx, b.cfg.Coins)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch crypto prices: %w", err)
	}
	b.pricesCache.Set(prices)
	return prices, nil
}

// cryptoBlock цены монет в долларах и рублях по курсу USD
func (b *Bot) cryptoBlock(ctx context.Context) (string, error) {
	usd, err := b.rates.GetCurrent(ctx, "USD")
	if err != nil {
		return "", fmt.Errorf("failed to get USD rate: %w", err)
	}

	prices, err := b.cryptoPrices(ctx)
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(prices))
	for id := range prices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🪙 Курс криптовалют (USD = %s ₽ на %s):\n", pkg.FormatRate(usd.Rate), usd.Date.Display())
	for _, id := range ids {
		price := prices[id]
		fmt.Fprintf(&sb, "\n%s:\n$%.2f = %.2f ₽\n", coinTitle(id), price, price*usd.Rate)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// topMarkets рейтинг из кеша; при промахе загружается сразу maxTopLimit монет
func (b *Bot) topMarkets(ctx context.Context, limit int) ([]feed.MarketCoin, error) {
	if coins, ok := b.markets.Top(limit); ok {
		return coins, nil
	}

	coins, err := b.prices.FetchTopMarkets(ctx, maxTopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top markets: %w", err)
	}
	b.markets.Set(coins)

	if len(coins) > limit {
		coins = coins[:limit]
	}
	return coins, nil
}

// topBlock рейтинг монет с ценой и капитализацией в долларах и рублях
func (b *Bot) topBlock(ctx context.Context, limit int) (string, error) {
	usd, err := b.rates.GetCurrent(ctx, "USD")
	if err != nil {
		return "", fmt.Errorf("failed to get USD rate: %w", err)
	}

	coins, err := b.topMarkets(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(coins) == 0 {
		return "", fmt.Errorf("empty markets response")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Топ криптовалют по рыночной капитализации:\n")
	for _, coin := range coins {
		fmt.Fprintf(&sb, "\n%d. %s (%s)\n💰 Цена: $%s / %s ₽\n💎 Капитализация: $%s / %s ₽\n",
			coin.MarketCapRank, coin.Name, strings.ToUpper(coin.Symbol),
			groupThousands(coin.CurrentPrice, 2), groupThousands(coin.CurrentPrice*usd.Rate, 2),
			groupThousands(coin.MarketCap, 0), groupThousands(coin.MarketCap*usd.Rate, 0))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// groupThousands округляет до places знаков и разделяет разряды запятой: 1,234,567.89
func groupThousands(value float64, places int32) string {
	fixed := decimal.NewFromFloat(value).StringFixed(places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, hasFrac := strings.Cut(fixed, ".")

	var sb strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if hasFrac {
		sb.WriteString("." + frac)
	}
	return sign + sb.String()
}

func coinTitle(id string) string {
	switch id {
	case "bitcoin":
		return "₿ Bitcoin"
	case "ethereum":
		return "Ξ Ethereum"
	default:
		return id
	}
}

func formatHistory(title string, points []engine.HistoryPoint) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")

	if len(points) > maxHistoryLines {
		fmt.Fprintf(&sb, "(последние %d из %d)\n", maxHistoryLines, len(points))
		points = points[len(points)-maxHistoryLines:]
	}

	for _, p := range points {
		fmt.Fprintf(&sb, "\n%s  %s", p.Date.Display(), pkg.FormatRate(p.Rate))
	}
	return sb.String()
}

// errorText сообщение пользователю по виду ошибки
func errorText(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "🔍 Нет данных: " + err.Error()
	case apperrors.KindFormat, apperrors.KindValidation:
		return "⚠️ Неверный запрос: " + err.Error()
	case apperrors.KindStoreUnavailable:
		return "⏳ Сервис курсов временно недоступен. Попробуйте позже."
	default:
		return "❌ Внутренняя ошибка. Попробуйте позже."
	}
}
