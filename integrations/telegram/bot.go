package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/arashthr/shelfmark/internal/logging"
	"github.com/arashthr/shelfmark/internal/validations"
)

const maxMessageLength = 1000

// Bot saves links sent in chat through the bookmark API. Text without a link
// is treated as a folder search.
type Bot struct {
	API *APIClient
}

func StartBot(ctx context.Context, telegramToken string, api *APIClient) error {
	tb := &Bot{API: api}
	b, err := bot.New(telegramToken)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, tb.startHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, tb.handleMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, tb.handleCallbackQuery)

	b.Start(ctx)
	return nil
}

func (tb *Bot) startHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "Send me a link, optionally followed by a note, and I will file it into a folder. Send any other text to search your folders.",
	})
}

func (tb *Bot) handleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msg := update.Message.Text
	if utf8.RuneCountInString(msg) > maxMessageLength {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("Message is too long. Please shorten it to %d characters or less.", maxMessageLength),
		})
		return
	}

	link, note := ParseMessage(msg)
	if link != "" {
		tb.saveBookmark(ctx, b, chatID, link, note)
		return
	}
	tb.searchFolders(ctx, b, chatID, strings.TrimSpace(msg))
}

// ParseMessage picks the first http(s) link out of msg. The remaining words
// form the note.
func ParseMessage(msg string) (link, note string) {
	var rest []string
	for _, part := range strings.Fields(msg) {
		if link == "" && validations.IsURLValid(part) {
			link = part
			continue
		}
		rest = append(rest, part)
	}
	if link == "" {
		return "", ""
	}
	return link, strings.Join(rest, " ")
}

func (tb *Bot) saveBookmark(ctx context.Context, b *bot.Bot, chatID int64, link, note string) {
	logger := logging.Logger.With("chatID", chatID, "link", link)
	bookmark, err := tb.API.SaveBookmark(ctx, link, note)
	if err != nil {
		logger.Errorw("failed to save bookmark", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Failed to save bookmark: " + err.Error()})
		return
	}
	logger.Infow("saved bookmark", "id", bookmark.ID, "folder", bookmark.FolderName)

	id := fmt.Sprint(bookmark.ID)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   SavedMessage(bookmark),
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "Delete", CallbackData: "delete|" + id},
					{Text: "Details", CallbackData: "details|" + id},
				},
			},
		},
	})
}

func SavedMessage(bookmark *BookmarkResponse) string {
	return fmt.Sprintf("Saved to %s: %s", bookmark.FolderName, bookmark.Title)
}

func (tb *Bot) searchFolders(ctx context.Context, b *bot.Bot, chatID int64, query string) {
	if query == "" {
		return
	}
	folders, err := tb.API.SearchFolders(ctx, query)
	if err != nil {
		logging.Logger.Errorw("failed to search folders", "error", err, "query", query, "chatID", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "Search failed: " + err.Error()})
		return
	}
	if len(folders) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "No folders found."})
		return
	}

	var sb strings.Builder
	for i, f := range folders {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, html.EscapeString(f.Name))
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: sb.String(), ParseMode: models.ParseModeHTML})
}

func (tb *Bot) handleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	data := update.CallbackQuery.Data
	action, bookmarkID, ok := strings.Cut(data, "|")
	if !ok {
		logging.Logger.Errorw("invalid callback data", "data", data)
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Invalid callback",
			ShowAlert:       true,
		})
		return
	}

	switch action {
	case "delete":
		tb.deleteBookmark(ctx, b, update, bookmarkID)
	case "details":
		tb.bookmarkDetails(ctx, b, update, bookmarkID)
	}
}

func (tb *Bot) deleteBookmark(ctx context.Context, b *bot.Bot, update *models.Update, bookmarkID string) {
	if err := tb.API.DeleteBookmark(ctx, bookmarkID); err != nil {
		logging.Logger.Errorw("failed to delete bookmark", "error", err, "bookmarkID", bookmarkID)
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Failed to delete bookmark",
			ShowAlert:       true,
		})
		return
	}

	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    update.CallbackQuery.Message.Message.Chat.ID,
		MessageID: update.CallbackQuery.Message.Message.ID,
		Text:      "Bookmark deleted",
	})
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            "Bookmark deleted",
	})
}

func (tb *Bot) bookmarkDetails(ctx context.Context, b *bot.Bot, update *models.Update, bookmarkID string) {
	bookmark, err := tb.API.GetBookmark(ctx, bookmarkID)
	if err != nil {
		logging.Logger.Errorw("failed to get bookmark", "error", err, "bookmarkID", bookmarkID)
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Failed to get bookmark",
			ShowAlert:       true,
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.CallbackQuery.Message.Message.Chat.ID,
		Text:   DetailsMessage(bookmark),
	})
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
}

func DetailsMessage(bookmark *BookmarkResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s", bookmark.Title, bookmark.URL)
	if bookmark.Description != nil {
		fmt.Fprintf(&sb, "\n\n%s", *bookmark.Description)
	}
	if bookmark.UserNote != nil {
		fmt.Fprintf(&sb, "\n\nNote: %s", *bookmark.UserNote)
	}
	return sb.String()
}
