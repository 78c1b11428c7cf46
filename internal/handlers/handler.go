package handlers

import (
	"context"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pajangan-promoshot/internal/batch"
	"pajangan-promoshot/internal/mediagroup"
	"pajangan-promoshot/internal/preview"
	"pajangan-promoshot/internal/telegram"
)

// Messenger is the part of the Telegram client the bot needs.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	SendTextWithKeyboard(chatID int64, text string, kb telegram.InlineKeyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.InlineKeyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendAlbum(chatID int64, dataURLs []string, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Generator interface {
	Generate(ctx context.Context, req batch.Request) ([]string, error)
}

type Options struct {
	Telegram  Messenger
	Generator Generator
	States    *preview.Store
	Logger    *slog.Logger
}

type Handler struct {
	tg         Messenger
	gen        Generator
	states     *preview.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	states := opts.States
	if states == nil {
		states = preview.NewStore()
	}

	return &Handler{
		tg:     opts.Telegram,
		gen:    opts.Generator,
		states: states,
		logger: logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(chatID, userID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(chatID, userID, msg)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, textSendPhotos)
	}

	return nil
}

// HandleMediaGroup takes an album as model photo (first) and product photo (second).
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if len(group.FileIDs) == 0 {
		return
	}

	opts := preview.ParseArgs(group.Caption, h.states.Get(group.ChatID, group.UserID).PromptOptions())
	h.states.Update(group.ChatID, group.UserID, func(st *preview.UIState) {
		st.Background = opts.Background
		st.AspectRatio = opts.AspectRatio
		if len(group.FileIDs) == 1 {
			st.AcceptPhoto(group.FileIDs[0])
			return
		}
		st.ModelFileID = group.FileIDs[0]
		st.ProductFileID = group.FileIDs[1]
		st.Awaiting = ""
		st.Menu = "main"
	})

	if len(group.FileIDs) > 2 {
		_ = h.tg.SendText(group.ChatID, textExtraPhotos)
	}

	if err := h.renderUI(group.ChatID, group.UserID, false); err != nil {
		h.logger.Error("media group render failed", "err", err)
	}
}

func (h *Handler) handleCommand(chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID, textStart)
	case "help":
		return h.tg.SendText(chatID, textHelp)
	case "promo":
		return h.startWizard(chatID, userID, msg.CommandArguments())
	case "cancel":
		h.states.Reset(chatID, userID)
		return h.tg.SendText(chatID, textCanceled)
	default:
		return h.tg.SendText(chatID, textUnknownCommand)
	}
}

func (h *Handler) handlePhoto(chatID, userID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MessageID:    msg.MessageID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	st := h.states.Update(chatID, userID, func(st *preview.UIState) {
		if caption := strings.TrimSpace(msg.Caption); caption != "" {
			opts := preview.ParseArgs(caption, st.PromptOptions())
			st.Background = opts.Background
			st.AspectRatio = opts.AspectRatio
		}
		st.AcceptPhoto(photo.FileID)
		st.Menu = "main"
	})

	h.logger.Debug("photo accepted",
		"chat_id", chatID,
		"ready", st.Ready(),
		"awaiting", st.Awaiting,
	)

	return h.renderUI(chatID, userID, false)
}
