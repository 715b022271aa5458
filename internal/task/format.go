package task

import (
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"telegram2org/internal/model"
)

// TitleLimit is the title length (in characters) after which remaining
// message texts go to the notes instead.
const TitleLimit = 150

// Sender labels used when the real author is not available.
const (
	SelfLabel    = "me"
	UnknownLabel = "ERROR UNKNOWN SENDER"
)

// Media placeholders written in place of attachments.
const (
	photoText        = "*PHOTO*"
	documentText     = "*DOCUMENT*"
	emptyWebPageText = "*empty web page*"
)

const deepLinkPrefix = "https://web.telegram.org/#/im?p=@"

// Format builds a task from a message group.
func Format(g model.Group, log *slog.Logger) model.Task {
	label := senderLabel(g.Messages)

	texts := make([]string, 0, len(g.Messages))
	for _, m := range g.Messages {
		texts = append(texts, m.Text)
		if t, ok := mediaText(m, log); ok {
			texts = append(texts, t)
		}
	}
	slices.Reverse(texts)

	var b strings.Builder
	b.WriteString(label)
	if len(texts) > 0 {
		b.WriteString(" ")
		b.WriteString(texts[0])
		texts = texts[1:]
	}
	for len(texts) > 0 && utf8.RuneCountInString(b.String()) < TitleLimit {
		b.WriteString(" ")
		b.WriteString(texts[0])
		texts = texts[1:]
	}

	notes := append(slices.Clone(texts), deepLinkPrefix+label)

	return model.Task{
		Date:  g.Date,
		Title: b.String(),
		Notes: notes,
	}
}

// senderLabel joins the distinct sender names of a group in sorted order.
func senderLabel(messages []model.Message) string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range messages {
		name := senderName(m)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func senderName(m model.Message) string {
	fw := m.Forward
	if fw == nil {
		return SelfLabel
	}
	if fw.Sender == nil {
		if fw.ChatTitle != nil {
			return *fw.ChatTitle
		}
		return UnknownLabel
	}
	if fw.Sender.Username != "" {
		return fw.Sender.Username
	}
	return strings.TrimSpace(fw.Sender.FirstName + " " + fw.Sender.LastName)
}

func mediaText(m model.Message, log *slog.Logger) (string, bool) {
	switch m.Media.Kind {
	case model.MediaNone:
		return "", false
	case model.MediaWebPage:
		if m.Media.Empty {
			return emptyWebPageText, true
		}
		return m.Media.URL + " " + m.Media.Title, true
	case model.MediaPhoto:
		return photoText, true
	case model.MediaDocument:
		return documentText, true
	case model.MediaUnknown:
		log.Error("unknown media", "message_id", m.ID, "media", m.Media.Raw)
		return "", false
	}
	log.Error("unknown media", "message_id", m.ID, "kind", m.Media.Kind)
	return "", false
}
