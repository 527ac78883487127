package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/export"
	"github.com/kitbuilder587/tubescout/internal/service"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	command, args := ParseCommand(msg.Text)

	h.bot.logger.Info("received message",
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName),
		zap.String("command", command),
	)

	switch command {
	case "":
		if args == "" {
			return
		}
		h.handleSearch(ctx, msg, service.SearchParams{Keyword: args})
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "search":
		if args == "" {
			h.bot.Send(msg.Chat.ID, "Usage: /search &lt;keyword&gt; [YYYY-MM-DD YYYY-MM-DD] [limit]")
			return
		}
		params, err := ParseSearchArgs(args)
		if err != nil {
			h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
			return
		}
		h.handleSearch(ctx, msg, params)
	default:
		h.bot.Send(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	h.bot.Send(msg.Chat.ID, "Hi! Send me a keyword and I will find matching YouTube videos from the last month.\n\nUse /help for options.")
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	helpText := fmt.Sprintf(`<b>Commands:</b>

/start - Introduction
/help - Show this help
/search keyword [from to] [limit] - Search videos

<b>Details:</b>
• Dates are YYYY-MM-DD; by default the last month up to today (UTC)
• Limit is 1..%d, default %d
• Results come newest first, with CSV and XLSX files attached

<b>Examples:</b>
• golang
• /search golang 2024-01-01 2024-01-31
• /search rust tutorial 2024-01-01 2024-03-31 200`,
		h.maxResults(), h.defaultResults())

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleSearch(ctx context.Context, msg *tgbotapi.Message, params service.SearchParams) {
	startTime := time.Now()
	key := userKey(msg.From.ID)

	if !h.bot.rateLimiter.Allow(key) {
		resetTime := h.bot.rateLimiter.ResetTime(key)
		h.bot.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Time("reset_at", resetTime),
		)
		h.bot.RecordRateLimitHit()
		h.bot.Send(msg.Chat.ID, "Too many requests. Please wait a minute.")
		return
	}

	q, err := service.BuildQuery(params, h.bot.config.Limits, h.bot.now())
	if err != nil {
		h.bot.RecordRequest("rejected", time.Since(startTime))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.SendChatAction(msg.Chat.ID, tgbotapi.ChatTyping)

	if h.bot.metrics != nil {
		h.bot.metrics.IncRequestsInFlight()
		defer h.bot.metrics.DecRequestsInFlight()
	}

	searchCtx, cancel := context.WithTimeout(ctx, h.bot.config.SearchTimeout)
	defer cancel()

	records, err := h.bot.aggregator.Aggregate(searchCtx, q)
	if err != nil {
		h.bot.logger.Error("search failed",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
			zap.String("kind", string(domain.KindOf(err))),
		)
		h.bot.RecordRequest("error", time.Since(startTime))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.RecordRequest("success", time.Since(startTime))

	if len(records) == 0 {
		h.bot.Send(msg.Chat.ID, FormatNoResults(q))
		return
	}

	for _, m := range SplitMessage(FormatResults(q, records, h.bot.config.PreviewCount), maxMessageLen) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}

	h.sendExports(msg.Chat.ID, q, records)
}

func (h *Handler) sendExports(chatID int64, q domain.SearchQuery, records []domain.Record) {
	h.bot.SendChatAction(chatID, tgbotapi.ChatUploadDocument)

	for _, e := range export.All() {
		var buf bytes.Buffer
		if err := e.Write(&buf, records); err != nil {
			h.bot.logger.Error("export failed", zap.String("format", string(e.Format())), zap.Error(err))
			continue
		}

		name := export.FileName(q.Keyword, e.Format())
		caption := fmt.Sprintf("%d videos, %s – %s", len(records),
			q.StartDate.Format(domain.DateLayout), q.EndDate.Format(domain.DateLayout))
		if err := h.bot.SendDocument(chatID, name, buf.Bytes(), caption); err != nil {
			h.bot.logger.Error("failed to send document", zap.String("name", name), zap.Error(err))
		}
	}
}

func (h *Handler) defaultResults() int {
	if n := h.bot.config.Limits.DefaultResults; n > 0 {
		return n
	}
	return domain.DefaultResultCap
}

func (h *Handler) maxResults() int {
	if n := h.bot.config.Limits.MaxResults; n > 0 {
		return n
	}
	return domain.MaxResultCap
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyKeyword):
		return "Please enter a keyword."
	case errors.Is(err, service.ErrInvalidDate):
		return "Dates must look like 2024-01-31."
	case errors.Is(err, domain.ErrInvalidDateRange):
		return "The start date must not be after the end date."
	case errors.Is(err, domain.ErrInvalidResultCap), errors.Is(err, domain.ErrResultCapTooLarge):
		return fmt.Sprintf("The limit must be between 1 and %d.", domain.MaxResultCap)
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return "Invalid search parameters. Use /help for the format."
	case domain.KindInvalidCredential:
		return "The YouTube API key is invalid. Please contact the bot owner."
	case domain.KindQuotaExceeded:
		return "YouTube API error: the quota may be exhausted. Please try again later."
	case domain.KindTransport:
		return "Could not reach YouTube. Please try again later."
	case domain.KindMalformedResponse, domain.KindProtocolAnomaly:
		return "YouTube returned an unexpected response. Please try again later."
	case domain.KindCanceled:
		return "The search took too long. Try a smaller limit or a shorter date range."
	default:
		return "Something went wrong. Please try again later."
	}
}
