// Package notify sends operator notifications through Telegram. Sends are
// queued and rate limited in a background worker so callers never block on
// the Telegram API.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Melekhin/betdesk/internal/pkg/models"
)

// Min interval between any two Telegram messages to the same chat to avoid
// 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

// TelegramNotifier sends operator alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	lastSend time.Time

	queue     chan string
	queueDone chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewTelegramNotifier creates and starts a notifier. Returns nil when the bot
// cannot be initialized; a nil notifier is safe to use and drops all alerts.
func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("Failed to get bot info", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		queue:     make(chan string, 100),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	n.wg.Add(1)
	go n.messageSender()

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return n
}

// Alertf queues a formatted operator alert (non-blocking).
func (n *TelegramNotifier) Alertf(format string, args ...any) {
	if n == nil || n.bot == nil {
		return
	}

	text := fmt.Sprintf("⚠️ *Alert*\n\n%s\n\n_Time: %s_",
		escapeMarkdown(fmt.Sprintf(format, args...)),
		time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	select {
	case <-n.ctx.Done():
	case n.queue <- text:
	default:
		slog.Warn("Telegram message queue is full, dropping alert")
	}
}

// StopProfitAlert queues a notification that an account hit its daily stop
// profit limit (non-blocking).
func (n *TelegramNotifier) StopProfitAlert(account *models.WageringAccount, dailyProfit float64) {
	if n == nil || n.bot == nil {
		return
	}

	text := fmt.Sprintf("🛑 *Stop profit reached*\n\n*%s*\nDaily profit: *%.2f*\nLimit: *%.2f*\n\n_The account is excluded from selection until the next accounting day\\._",
		escapeMarkdown(account.Username), dailyProfit, account.StopProfitLimit)

	select {
	case <-n.ctx.Done():
	case n.queue <- text:
	default:
		slog.Warn("Telegram message queue is full, dropping stop profit alert", "account", account.Username)
	}
}

// messageSender sends queued messages with the rate-limit interval between them.
func (n *TelegramNotifier) messageSender() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			// Drain remaining messages before exit
			for {
				select {
				case text := <-n.queue:
					n.send(text)
				default:
					close(n.queueDone)
					return
				}
			}
		case text := <-n.queue:
			n.send(text)
		}
	}
}

func (n *TelegramNotifier) send(text string) {
	n.mu.Lock()
	elapsed := time.Since(n.lastSend)
	if elapsed < telegramSendInterval {
		wait := telegramSendInterval - elapsed
		n.mu.Unlock()
		select {
		case <-n.ctx.Done():
			return
		case <-time.After(wait):
		}
		n.mu.Lock()
	}
	n.lastSend = time.Now()
	n.mu.Unlock()

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Telegram send failed", "error", err, "queue_length", len(n.queue))
		return
	}
	slog.Debug("Telegram alert sent", "queue_length", len(n.queue))
}

// Stop stops the notifier and waits for queued messages to be sent.
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	<-n.queueDone
	n.wg.Wait()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
