// Package source reads conversation messages from Telegram.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram2org/internal/model"
)

var (
	// ErrConversationNotFound is returned when the configured chat cannot be
	// resolved or carries a different name.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrTemporarilyUnavailable marks upstream failures that Telegram reports as transient.
	ErrTemporarilyUnavailable = errors.New("telegram temporarily unavailable")
)

const transientSignature = "Telegram is having internal issues, please try again later"

type telegramAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// TitleResolver looks up the preview title of a link.
type TitleResolver interface {
	Title(ctx context.Context, url string) (string, error)
}

// Telegram fetches conversation messages from pending bot updates.
type Telegram struct {
	api      telegramAPI
	resolver TitleResolver
	limit    int
	log      *slog.Logger
	chatID   int64

	lastUpdateID int
}

// New connects to the Bot API with token. A nil resolver leaves link titles empty.
func New(token string, limit int, resolver TitleResolver, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, wrapError("create bot api", err)
	}
	return newTelegram(api, limit, resolver, log), nil
}

func newTelegram(api telegramAPI, limit int, resolver TitleResolver, log *slog.Logger) *Telegram {
	return &Telegram{
		api:      api,
		resolver: resolver,
		limit:    limit,
		log:      log,
	}
}

// SetChatID pins the conversation to a chat. Fetch then verifies the name
// through getChat when no update for it is pending.
func (t *Telegram) SetChatID(id int64) {
	t.chatID = id
}

// Fetch returns the non-service messages of the first conversation whose
// display name equals name, newest first. A conversation with no pending
// updates yields no messages.
func (t *Telegram) Fetch(ctx context.Context, name string) ([]model.Message, error) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Limit = t.limit

	updates, err := t.api.GetUpdates(cfg)
	if err != nil {
		return nil, wrapError("get updates", err)
	}

	var chatID int64
	found := false
	var msgs []*tgbotapi.Message
	for _, u := range updates {
		if u.UpdateID > t.lastUpdateID {
			t.lastUpdateID = u.UpdateID
		}
		m := updateMessage(u)
		if m == nil || m.Chat == nil {
			continue
		}
		if !found && chatName(m.Chat) == name {
			chatID = m.Chat.ID
			found = true
		}
		msgs = append(msgs, m)
	}
	if !found {
		if t.chatID != 0 {
			if err := t.resolve(name); err != nil {
				return nil, err
			}
		}
		t.log.Info("no pending messages for conversation", "conversation", name, "updates", len(updates))
		return nil, nil
	}

	var out []model.Message
	for _, m := range msgs {
		if m.Chat.ID != chatID {
			continue
		}
		if isService(m) {
			t.log.Debug("skipping service message", "message_id", m.MessageID)
			continue
		}
		out = append(out, t.convert(ctx, m))
	}
	slices.Reverse(out)

	t.log.Debug("fetched messages", "conversation", name, "updates", len(updates), "messages", len(out))
	return out, nil
}

func (t *Telegram) resolve(name string) error {
	chat, err := t.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: t.chatID}})
	if err != nil {
		if IsTransient(err) {
			return wrapError("get chat", err)
		}
		return fmt.Errorf("%w: %q: %w", ErrConversationNotFound, name, err)
	}
	if got := chatName(&chat); got != name {
		return fmt.Errorf("%w: chat %d is named %q, not %q", ErrConversationNotFound, t.chatID, got, name)
	}
	return nil
}

// Confirm acknowledges every update returned by the last Fetch so Telegram
// stops redelivering them.
func (t *Telegram) Confirm(_ context.Context) error {
	if t.lastUpdateID == 0 {
		return nil
	}
	cfg := tgbotapi.NewUpdate(t.lastUpdateID + 1)
	cfg.Limit = 1
	if _, err := t.api.GetUpdates(cfg); err != nil {
		return wrapError("confirm updates", err)
	}
	return nil
}

// IsTransient reports whether err carries Telegram's internal-issues signature.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, transientSignature)
	}
	return strings.Contains(err.Error(), transientSignature)
}

func wrapError(op string, err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTemporarilyUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func updateMessage(u tgbotapi.Update) *tgbotapi.Message {
	if u.Message != nil {
		return u.Message
	}
	return u.ChannelPost
}

func chatName(c *tgbotapi.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func isService(m *tgbotapi.Message) bool {
	return len(m.NewChatMembers) > 0 ||
		m.LeftChatMember != nil ||
		m.NewChatTitle != "" ||
		len(m.NewChatPhoto) > 0 ||
		m.DeleteChatPhoto ||
		m.GroupChatCreated ||
		m.SuperGroupChatCreated ||
		m.ChannelChatCreated ||
		m.MigrateToChatID != 0 ||
		m.MigrateFromChatID != 0 ||
		m.PinnedMessage != nil
}

func (t *Telegram) convert(ctx context.Context, m *tgbotapi.Message) model.Message {
	text, entities := m.Text, m.Entities
	if text == "" {
		text, entities = m.Caption, m.CaptionEntities
	}
	return model.Message{
		ID:      m.MessageID,
		Date:    int64(m.Date),
		Text:    text,
		Media:   t.media(ctx, m, text, entities),
		Forward: forward(m),
	}
}

func forward(m *tgbotapi.Message) *model.Forward {
	if m.ForwardDate == 0 && m.ForwardFrom == nil && m.ForwardFromChat == nil {
		return nil
	}
	fw := &model.Forward{}
	if u := m.ForwardFrom; u != nil {
		fw.Sender = &model.Sender{
			Username:  u.UserName,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		}
	}
	if c := m.ForwardFromChat; c != nil {
		title := c.Title
		fw.ChatTitle = &title
	}
	return fw
}

func (t *Telegram) media(ctx context.Context, m *tgbotapi.Message, text string, entities []tgbotapi.MessageEntity) model.Media {
	switch {
	case len(m.Photo) > 0:
		return model.Media{Kind: model.MediaPhoto}
	case m.Document != nil, m.Video != nil, m.Audio != nil, m.Voice != nil,
		m.VideoNote != nil, m.Sticker != nil, m.Animation != nil:
		return model.Media{Kind: model.MediaDocument}
	case m.Contact != nil:
		return model.Media{Kind: model.MediaUnknown, Raw: "contact"}
	case m.Venue != nil:
		return model.Media{Kind: model.MediaUnknown, Raw: "venue"}
	case m.Location != nil:
		return model.Media{Kind: model.MediaUnknown, Raw: "location"}
	case m.Poll != nil:
		return model.Media{Kind: model.MediaUnknown, Raw: "poll"}
	case m.Dice != nil:
		return model.Media{Kind: model.MediaUnknown, Raw: "dice"}
	case m.Game != nil:
		return model.Media{Kind: model.MediaUnknown, Raw: "game"}
	}

	url := firstLink(text, entities)
	if url == "" {
		return model.Media{Kind: model.MediaNone}
	}
	page := model.Media{Kind: model.MediaWebPage, URL: url}
	if t.resolver == nil {
		return page
	}
	title, err := t.resolver.Title(ctx, url)
	if err != nil {
		t.log.Warn("resolve link preview", "url", url, "error", err)
		page.Empty = true
		return page
	}
	page.Title = title
	return page
}

// firstLink returns the target of the first url or text_link entity.
// Entity offsets count UTF-16 code units.
func firstLink(text string, entities []tgbotapi.MessageEntity) string {
	var units []uint16
	for _, e := range entities {
		switch e.Type {
		case "text_link":
			if e.URL != "" {
				return e.URL
			}
		case "url":
			if units == nil {
				units = utf16.Encode([]rune(text))
			}
			end := e.Offset + e.Length
			if e.Offset < 0 || e.Length <= 0 || end > len(units) {
				continue
			}
			return string(utf16.Decode(units[e.Offset:end]))
		}
	}
	return ""
}
