package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"pajangan-promoshot/internal/batch"
	"pajangan-promoshot/internal/normalize"
	"pajangan-promoshot/internal/preview"
)

const callbackPrefix = "pp"

const typingInterval = 4 * time.Second

func (h *Handler) startWizard(chatID, userID int64, args string) error {
	opts := preview.ParseArgs(args, preview.DefaultOptions())
	st := h.states.Update(chatID, userID, func(st *preview.UIState) {
		msgID := st.MessageID
		*st = preview.UIState{
			Background:  opts.Background,
			AspectRatio: opts.AspectRatio,
			Awaiting:    preview.SlotModel,
			Menu:        "main",
			MessageID:   msgID,
		}
	})

	msgID, err := h.tg.SendTextWithKeyboard(chatID, uiText(st), uiKeyboard(userID, st))
	if err != nil {
		return err
	}
	h.states.Update(chatID, userID, func(st *preview.UIState) { st.MessageID = msgID })
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, callbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, textNotYourMenu, true)
		return nil
	}

	action := parts[2]
	args := parts[3:]
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID

	h.states.Update(chatID, ownerID, func(st *preview.UIState) {
		st.MessageID = msgID

		switch action {
		case "menu":
			if len(args) >= 1 {
				st.Menu = args[0]
			}
		case "bgpage":
			if n, ok := intArg(args); ok {
				st.SetBackgroundPage(n)
			}
			st.Menu = "background"
		case "bg":
			if n, ok := intArg(args); ok {
				if bg, ok := preview.BackgroundByIndex(n); ok {
					st.Background = bg.Key
				}
			}
			st.Menu = "main"
		case "ratio":
			if n, ok := intArg(args); ok {
				ratios := preview.AspectRatios()
				if n >= 0 && n < len(ratios) {
					st.AspectRatio = preview.AspectRatio(ratios[n].Key)
				}
			}
			st.Menu = "main"
		case "await":
			if len(args) >= 1 && (args[0] == preview.SlotModel || args[0] == preview.SlotProduct) {
				st.Awaiting = args[0]
			}
			st.Menu = "main"
		case "reset":
			msgID := st.MessageID
			*st = preview.UIState{
				Background:  preview.DefaultBackground().Key,
				AspectRatio: preview.DefaultAspectRatio,
				Awaiting:    preview.SlotModel,
				Menu:        "main",
				MessageID:   msgID,
			}
		}
	})

	switch action {
	case "await":
		_ = h.tg.AnswerCallback(q.ID, textSendPhotoNow, false)
	case "generate":
		return h.generate(ctx, chatID, ownerID, q.ID)
	case "close":
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
		empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		return h.tg.EditTextWithKeyboard(chatID, msgID, uiText(h.states.Get(chatID, ownerID)), empty)
	default:
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}

	return h.renderUI(chatID, ownerID, true)
}

// generate runs one batch for the chat's current photos and options.
// A second press while a batch is running is rejected.
func (h *Handler) generate(ctx context.Context, chatID, userID int64, callbackID string) error {
	st, ok := h.states.BeginGeneration(chatID, userID)
	if !ok {
		if st.Generating {
			_ = h.tg.AnswerCallback(callbackID, textBusy, true)
			return nil
		}
		_ = h.tg.AnswerCallback(callbackID, textNeedPhotos, true)
		return h.renderUI(chatID, userID, true)
	}
	defer h.states.EndGeneration(chatID, userID)

	_ = h.tg.AnswerCallback(callbackID, textGenerating, false)
	opts := st.PromptOptions()
	_ = h.tg.SendText(chatID, fmt.Sprintf(textGeneratingLong, preview.BatchSize, backgroundName(opts.Background), opts.AspectRatio))

	stopTyping := h.keepTyping(ctx, chatID)
	defer stopTyping()

	start := time.Now()
	req, err := h.loadPhotos(ctx, st, opts.AspectRatio)
	if err != nil {
		h.logger.Error("photo download failed", "err", err, "chat_id", chatID)
		return h.tg.SendText(chatID, textDownloadFailed)
	}
	req.Background = opts.Background
	req.AspectRatio = opts.AspectRatio

	// the batch keeps its retries even when the update deadline passes
	images, err := h.gen.Generate(context.WithoutCancel(ctx), req)
	if err != nil {
		h.logger.Error("batch failed", "err", err, "chat_id", chatID)
		return h.tg.SendText(chatID, failureText(err))
	}

	h.logger.Info("batch delivered",
		"chat_id", chatID,
		"images", len(images),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	caption := fmt.Sprintf(textDone, len(images), backgroundName(opts.Background), opts.AspectRatio)
	return h.tg.SendAlbum(chatID, images, caption)
}

// loadPhotos downloads both photos in parallel and letterboxes them for ratio.
func (h *Handler) loadPhotos(ctx context.Context, st preview.UIState, ratio preview.AspectRatio) (batch.Request, error) {
	fileIDs := []string{st.ModelFileID, st.ProductFileID}
	payloads := make([]preview.ImagePayload, len(fileIDs))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			data, mimeType, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			img, err := normalize.Normalize(data, mimeType, ratio)
			if err != nil {
				return err
			}
			payloads[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return batch.Request{}, err
	}

	return batch.Request{ModelImage: payloads[0], ProductImage: payloads[1]}, nil
}

// keepTyping refreshes the chat action until the returned func is called.
func (h *Handler) keepTyping(ctx context.Context, chatID int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	h.tg.SendTyping(chatID)

	go func() {
		t := time.NewTicker(typingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.tg.SendTyping(chatID)
			}
		}
	}()
	return cancel
}

func (h *Handler) renderUI(chatID, userID int64, edit bool) error {
	st := h.states.Get(chatID, userID)

	text := uiText(st)
	kb := uiKeyboard(userID, st)

	if edit && st.MessageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, st.MessageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.states.Update(chatID, userID, func(st *preview.UIState) { st.MessageID = msgID })
	return nil
}

func failureText(err error) string {
	switch {
	case errors.Is(err, batch.ErrMissingImage), errors.Is(err, batch.ErrInvalidImage):
		return textNeedPhotos
	case errors.Is(err, context.DeadlineExceeded):
		return textTimeout
	default:
		return textGenerationFailed
	}
}

func uiText(st preview.UIState) string {
	opts := st.PromptOptions()

	var b strings.Builder
	b.WriteString("📸 Pajangan Promoshot\n\n")
	b.WriteString("Foto model: " + check(st.ModelFileID != "") + "\n")
	b.WriteString("Foto produk: " + check(st.ProductFileID != "") + "\n")
	b.WriteString("Latar: " + backgroundName(opts.Background) + "\n")
	b.WriteString("Rasio: " + string(opts.AspectRatio) + "\n\n")

	switch {
	case st.Generating:
		b.WriteString("⏳ Sedang membuat gambar...")
	case st.Awaiting == preview.SlotModel:
		b.WriteString("➡️ Kirim foto model (orang yang memegang produk).")
	case st.Awaiting == preview.SlotProduct:
		b.WriteString("➡️ Kirim foto produk pajangan.")
	case st.Ready():
		b.WriteString(fmt.Sprintf("✅ Siap. Tekan \"Buat %d Gambar\".", preview.BatchSize))
	}

	switch st.Menu {
	case "background":
		pages := (len(preview.Backgrounds())-1)/preview.BackgroundPageSize + 1
		b.WriteString(fmt.Sprintf("\n\nPilih latar (halaman %d/%d):", st.BackgroundPage+1, pages))
	case "ratio":
		b.WriteString("\n\nPilih rasio aspek:")
	}

	return b.String()
}

func uiKeyboard(ownerID int64, st preview.UIState) tgbotapi.InlineKeyboardMarkup {
	switch st.Menu {
	case "background":
		return backgroundKeyboard(ownerID, st)
	case "ratio":
		return ratioKeyboard(ownerID, st)
	default:
		return mainKeyboard(ownerID, st)
	}
}

func mainKeyboard(ownerID int64, st preview.UIState) tgbotapi.InlineKeyboardMarkup {
	opts := st.PromptOptions()

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Foto model "+check(st.ModelFileID != ""), cb(ownerID, "await", preview.SlotModel)),
			tgbotapi.NewInlineKeyboardButtonData("🖼 Foto produk "+check(st.ProductFileID != ""), cb(ownerID, "await", preview.SlotProduct)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏞 "+truncateLine(backgroundName(opts.Background), 28), cb(ownerID, "menu", "background")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📐 "+string(opts.AspectRatio), cb(ownerID, "menu", "ratio")),
		),
	}

	if st.Ready() && !st.Generating {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✨ Buat %d Gambar", preview.BatchSize), cb(ownerID, "generate")),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Ulang", cb(ownerID, "reset")),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Tutup", cb(ownerID, "close")),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backgroundKeyboard(ownerID int64, st preview.UIState) tgbotapi.InlineKeyboardMarkup {
	all := preview.Backgrounds()
	page := st.BackgroundPage
	first := page * preview.BackgroundPageSize
	last := min(first+preview.BackgroundPageSize, len(all))

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := first; i < last; i++ {
		label := all[i].Name
		if all[i].Key == st.Background {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "bg", strconv.Itoa(i))),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", cb(ownerID, "bgpage", strconv.Itoa(page-1))))
	}
	if last < len(all) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", cb(ownerID, "bgpage", strconv.Itoa(page+1))))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("↩️ Kembali", cb(ownerID, "menu", "main")),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ratioKeyboard(ownerID int64, st preview.UIState) tgbotapi.InlineKeyboardMarkup {
	current := st.PromptOptions().AspectRatio

	var row []tgbotapi.InlineKeyboardButton
	for i, r := range preview.AspectRatios() {
		label := r.Name
		if preview.AspectRatio(r.Key) == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "ratio", strconv.Itoa(i))))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Kembali", cb(ownerID, "menu", "main")),
		),
	)
}

func cb(ownerID int64, parts ...string) string {
	return callbackPrefix + ":" + strconv.FormatInt(ownerID, 10) + ":" + strings.Join(parts, ":")
}

func intArg(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	return n, err == nil
}

func backgroundName(key string) string {
	if bg, ok := preview.BackgroundByKey(key); ok {
		return bg.Name
	}
	return preview.DefaultBackground().Name
}

func check(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

func truncateLine(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
