package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/metrics"
	"github.com/kitbuilder587/tubescout/internal/ratelimit"
	"github.com/kitbuilder587/tubescout/internal/service"
)

const defaultPreviewCount = 10

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
	Limits            service.QueryLimits
	SearchTimeout     time.Duration
	// PreviewCount is how many records are listed in the chat; the rest only
	// go into the attached files.
	PreviewCount int
}

// sender is the part of *tgbotapi.BotAPI used for replies.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	out         sender
	aggregator  service.Aggregator
	logger      *zap.Logger
	metrics     *metrics.Metrics
	handler     *Handler
	rateLimiter *ratelimit.Limiter
	config      BotConfig
	now         func() time.Time
	wg          sync.WaitGroup
}

func New(cfg BotConfig, agg service.Aggregator, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(cfg, agg, logger, m)
	bot.api = api
	bot.out = api

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(cfg BotConfig, agg service.Aggregator, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 2 * time.Minute
	}
	if cfg.PreviewCount <= 0 {
		cfg.PreviewCount = defaultPreviewCount
	}

	bot := &Bot{
		aggregator: agg,
		logger:     logger,
		metrics:    m,
		rateLimiter: ratelimit.New(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		config: cfg,
		now:    time.Now,
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	defer b.rateLimiter.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			if b.metrics != nil {
				b.metrics.RecordRequest("telegram", "panic", time.Since(startTime))
			}
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.out == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	if b.out == nil {
		return nil
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := b.out.Send(doc)
	return err
}

func (b *Bot) SendChatAction(chatID int64, action string) {
	if b.out == nil {
		return
	}
	b.out.Send(tgbotapi.NewChatAction(chatID, action))
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit("telegram")
	}
}

func (b *Bot) RecordRequest(status string, duration time.Duration) {
	if b.metrics != nil {
		b.metrics.RecordRequest("telegram_search", status, duration)
	}
}

func userKey(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}
