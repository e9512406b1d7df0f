// Package bot saves links sent to the Telegram bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
	"smartlink/internal/service"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

const welcomeMessage = "SmartLink에 오신 것을 환영합니다! 링크를 보내주시면 분석해서 저장해 드릴게요."

// Accounts provisions the account behind a Telegram user.
type Accounts interface {
	EnsureUser(ctx context.Context, email, name string) (*domain.User, error)
}

// LinkSaver stores an enriched link.
type LinkSaver interface {
	CreateWithEnrichment(ctx context.Context, userID string, req service.CreateRequest) (*domain.Link, error)
}

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot      *tgbot.Bot
	accounts Accounts
	links    LinkSaver
	log      logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(token string, accounts Accounts, links LinkSaver, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	h := &Handler{
		accounts: accounts,
		links:    links,
		log:      log,
	}

	b, err := tgbot.New(token, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b

	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// Start begins polling for updates from Telegram.
// It blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped")
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := h.log.WithFields(logrus.Fields{
		"telegram_id": update.Message.From.ID,
		"command":     "/start",
	})
	log.Info("Received /start command")

	h.reply(ctx, b, update.Message.Chat.ID, welcomeMessage, log)
}

func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	log := h.log.WithField("telegram_id", update.Message.From.ID)

	text := h.handleText(ctx, update.Message.From, update.Message.Text)
	if text == "" {
		log.Debug("Ignoring message without a link")
		return
	}
	h.reply(ctx, b, update.Message.Chat.ID, text, log)
}

// handleText saves the first link in text for the sender and returns the reply.
// It returns "" when text carries no link.
func (h *Handler) handleText(ctx context.Context, from *models.User, text string) string {
	url := extractURL(text)
	if url == "" {
		return ""
	}
	log := h.log.WithFields(logrus.Fields{"telegram_id": from.ID, "url": url})

	user, err := h.accounts.EnsureUser(ctx, telegramEmail(from.ID), displayName(from))
	if err != nil {
		log.WithError(err).Error("Failed to provision user")
		return "계정을 준비하지 못했습니다. 잠시 후 다시 시도해 주세요."
	}

	link, err := h.links.CreateWithEnrichment(ctx, user.ID, service.CreateRequest{URL: url})
	if err != nil && !errors.Is(err, service.ErrDuplicateURL) && !service.IsValidation(err) {
		log.WithError(err).Error("Failed to save link")
	}
	return formatReply(link, err)
}

func (h *Handler) reply(ctx context.Context, b *tgbot.Bot, chatID int64, text string, log logrus.FieldLogger) {
	if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.WithError(err).Error("Failed to send message")
	}
}

func extractURL(text string) string {
	return strings.TrimRight(urlPattern.FindString(text), ".,)")
}

// telegramEmail is the synthetic login of a Telegram user's account.
func telegramEmail(id int64) string {
	return fmt.Sprintf("tg-%d@telegram.local", id)
}

func displayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case len([]rune(name)) >= 2:
		return name
	case u.Username != "":
		return u.Username
	default:
		return fmt.Sprintf("telegram-%d", u.ID)
	}
}

func formatReply(link *domain.Link, err error) string {
	switch {
	case errors.Is(err, service.ErrDuplicateURL):
		return "이미 저장된 링크입니다."
	case service.IsValidation(err):
		return "저장할 수 없는 링크입니다: " + err.Error()
	case err != nil:
		return "링크를 저장하지 못했습니다. 잠시 후 다시 시도해 주세요."
	}

	var sb strings.Builder
	sb.WriteString("저장했습니다!\n\n")
	sb.WriteString("제목: " + link.DisplayTitle() + "\n")
	if link.AICategorySuggestion != "" {
		sb.WriteString("카테고리: " + link.AICategorySuggestion + "\n")
	}
	if link.AISummary != "" {
		sb.WriteString("요약: " + link.AISummary + "\n")
	}
	if link.AnalysisError != "" {
		sb.WriteString("\nAI 분석을 완료하지 못해 기본 정보로 저장했습니다.\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
