package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/xaenox/planner-bot/internal/intent"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/notify"
	"github.com/xaenox/planner-bot/internal/pending"
	"github.com/xaenox/planner-bot/internal/planner"
	"go.uber.org/zap"
)

// Bot turns Telegram updates into planner calls. Updates are handled one
// at a time in arrival order.
type Bot struct {
	api     *tgbotapi.BotAPI
	sink    notify.Sink
	planner *planner.Service
	timeout int
	logger  *zap.Logger
}

func New(api *tgbotapi.BotAPI, sink notify.Sink, svc *planner.Service, timeout int, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		sink:    sink,
		planner: svc,
		timeout: timeout,
		logger:  logger,
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := b.logger.With(zap.String("update_ref", uuid.New().String()))

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, logger, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, logger, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	sender := senderOf(message.From)
	b.planner.Touch(sender)

	if message.IsCommand() {
		b.handleCommand(ctx, logger, message, sender)
		return
	}

	if message.Text == "" {
		return
	}
	reply, err := b.planner.HandleText(ctx, message.Chat.ID, sender, message.Text)
	b.respond(ctx, logger, message.Chat.ID, reply, err)
}

func (b *Bot) handleCommand(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message, sender models.Sender) {
	chatID := message.Chat.ID
	args := message.CommandArguments()

	logger.Debug("Handling command",
		zap.String("command", message.Command()),
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", sender.UserID))

	var (
		reply planner.Reply
		err   error
	)

	switch message.Command() {
	case "start":
		reply = b.planner.Start(sender)
	case "help":
		reply = b.planner.Help()
	case "menu":
		reply = b.planner.Menu()
	case "cancel":
		reply = b.planner.CancelPending(sender)
	case "remind":
		reply, err = b.planner.Remind(ctx, chatID, args)
	case "redit":
		reply, err = b.planner.EditReminder(ctx, chatID, args)
	case "rdel":
		reply, err = b.planner.DeleteReminderText(chatID, args)
	case "event":
		reply, err = b.planner.CreateEvent(ctx, chatID, sender, args)
	case "edit":
		reply, err = b.planner.EditEvent(ctx, sender, args)
	case "delete":
		reply, err = b.planner.DeleteEventText(sender, args)
	case "list":
		reply = b.planner.List(chatID, sender)
	case "history":
		reply, err = b.planner.History(ctx, chatID)
	default:
		reply = planner.Reply{Text: "Unknown command. Use /help to see available commands."}
	}

	b.respond(ctx, logger, chatID, reply, err)
}

func (b *Bot) handleCallback(ctx context.Context, logger *zap.Logger, query *tgbotapi.CallbackQuery) {
	sender := senderOf(query.From)
	b.planner.Touch(sender)

	in, err := intent.Decode(query.Data)
	if err != nil {
		logger.Warn("Unknown callback data", zap.Error(err), zap.String("data", query.Data))
		b.answer(logger, query.ID, "Unknown action", true)
		return
	}

	var origin planner.Origin
	if query.Message != nil {
		origin = planner.Origin{ChatID: query.Message.Chat.ID, MessageID: query.Message.MessageID}
	}

	reply, err := b.dispatch(ctx, sender, origin, in)
	if err != nil {
		b.logError(logger, err, zap.String("intent", string(in.Kind)), zap.Int64("id", in.ID))
		b.answer(logger, query.ID, planner.Explain(err), true)
		return
	}

	b.answer(logger, query.ID, reply.Toast, false)
	if reply.Text == "" || origin.ChatID == 0 {
		return
	}

	// Menu prompts are new messages; everything else replaces the pressed one.
	if in.Kind == intent.Menu {
		b.send(ctx, logger, origin.ChatID, reply)
		return
	}
	err = b.sink.Edit(ctx, origin.MessageID, notify.Message{
		ChatID:   origin.ChatID,
		Text:     reply.Text,
		Markdown: reply.Markdown,
		Keyboard: reply.Keyboard,
	})
	if err != nil {
		logger.Error("Failed to update message",
			zap.Error(err),
			zap.Int64("chat_id", origin.ChatID),
			zap.Int("message_id", origin.MessageID))
	}
}

func (b *Bot) dispatch(ctx context.Context, sender models.Sender, origin planner.Origin, in intent.Intent) (planner.Reply, error) {
	switch in.Kind {
	case intent.EventView:
		return b.planner.ViewEvent(sender, in.ID)
	case intent.EventEdit:
		return b.planner.EventEditHelp(sender, in.ID)
	case intent.EventDelete:
		return b.planner.DeleteEvent(sender, in.ID)
	case intent.EventRSVP:
		return b.planner.RSVP(ctx, sender, origin, in.ID, in.Status)
	case intent.ReminderView:
		return b.planner.ViewReminder(origin.ChatID, in.ID)
	case intent.ReminderEdit:
		return b.planner.ReminderEditHelp(origin.ChatID, in.ID)
	case intent.ReminderDelete:
		return b.planner.DeleteReminder(origin.ChatID, in.ID)
	case intent.Menu:
		return b.planner.BeginMenu(sender, menuAction(in.Target)), nil
	default:
		return planner.Reply{}, intent.ErrUnknownIntent
	}
}

func menuAction(target string) pending.Action {
	switch target {
	case intent.MenuReminder:
		return pending.AwaitingReminderText
	case intent.MenuEvent:
		return pending.AwaitingEventText
	default:
		return pending.Idle
	}
}

func (b *Bot) respond(ctx context.Context, logger *zap.Logger, chatID int64, reply planner.Reply, err error) {
	if err != nil {
		b.logError(logger, err, zap.Int64("chat_id", chatID))
		b.sendErrorMessage(ctx, logger, chatID, planner.Explain(err))
		return
	}
	b.send(ctx, logger, chatID, reply)
}

func (b *Bot) logError(logger *zap.Logger, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if models.IsUserError(err) {
		logger.Debug("Rejected user input", fields...)
		return
	}
	logger.Error("Failed to handle update", fields...)
}

func (b *Bot) send(ctx context.Context, logger *zap.Logger, chatID int64, reply planner.Reply) {
	if reply.Text == "" {
		return
	}
	_, err := b.sink.Send(ctx, notify.Message{
		ChatID:   chatID,
		Text:     reply.Text,
		Markdown: reply.Markdown,
		Keyboard: reply.Keyboard,
	})
	if err != nil {
		logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(ctx context.Context, logger *zap.Logger, chatID int64, text string) {
	b.send(ctx, logger, chatID, planner.Reply{Text: "⚠️ " + text})
}

func (b *Bot) answer(logger *zap.Logger, queryID, text string, alert bool) {
	cb := tgbotapi.NewCallback(queryID, text)
	cb.ShowAlert = alert
	if _, err := b.api.Request(cb); err != nil {
		logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

func senderOf(u *tgbotapi.User) models.Sender {
	if u == nil {
		return models.Sender{}
	}
	return models.Sender{
		UserID:      u.ID,
		Handle:      u.UserName,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}
