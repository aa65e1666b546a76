package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-club-bot/internal/application"
	"telegram-club-bot/internal/config"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/infra/logging"
	red "telegram-club-bot/internal/infra/redis"
	"telegram-club-bot/internal/usecase"
)

const starsCurrency = "XTR"

// Bot drives the Telegram API: it polls updates, fans them out to worker
// goroutines, and implements the Notifier and GroupGate ports.
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

var (
	_ adapter.Notifier  = (*Bot)(nil)
	_ adapter.GroupGate = (*Bot)(nil)
)

func NewBot(cfg *config.BotConfig, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	compLog := logger.With().Str("component", "TelegramBot").Logger()
	return &Bot{api: api, cfg: cfg, rateLimiter: rateLimiter, log: &compLog, updateWorkers: workers}, nil
}

// AttachFacade wires the handler after construction; the facade needs the
// bot as its Notifier, so the two cannot be built in one step.
func (b *Bot) AttachFacade(f *application.BotFacade) { b.facade = f }

// StartPolling polls Telegram for updates until ctx is canceled. Updates
// are fanned out to updateWorkers goroutines.
func (b *Bot) StartPolling(ctx context.Context) error {
	if b.facade == nil {
		return errors.New("no facade attached")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < b.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := b.handleUpdate(ctx, update); err != nil {
						b.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	b.api.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.PreCheckoutQuery != nil:
		// Pending rows exist for every issued invoice; approve and settle
		// on the success callback.
		_, err := b.api.Request(tgbotapi.PreCheckoutConfig{
			PreCheckoutQueryID: update.PreCheckoutQuery.ID,
			OK:                 true,
		})
		return err
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return b.handleMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	// Ack first so the client stops its spinner regardless of outcome.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack failed")
	}
	from := cb.From
	ctx = logging.WithTgID(ctx, from.ID)
	return b.facade.HandleCallback(ctx, from.ID, from.UserName, from.FirstName, from.LastName, cb.Data)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	if from == nil || from.IsBot {
		return nil
	}
	ctx = logging.WithTgID(ctx, from.ID)

	if msg.SuccessfulPayment != nil {
		return b.facade.HandleSuccessfulPayment(ctx, from.ID, msg.SuccessfulPayment.InvoicePayload)
	}

	if msg.IsCommand() {
		return b.handleCommand(ctx, msg)
	}

	proof, ok := proofFromMessage(msg)
	if !ok {
		return b.facade.HandleProofMessage(ctx, from.ID, from.UserName, from.FirstName, from.LastName,
			usecase.Proof{Kind: model.ProofTxID})
	}
	return b.facade.HandleProofMessage(ctx, from.ID, from.UserName, from.FirstName, from.LastName, proof)
}

// proofFromMessage maps message content to a proof candidate: photos and
// documents become screenshots, bare text a transaction id.
func proofFromMessage(msg *tgbotapi.Message) (usecase.Proof, bool) {
	if len(msg.Photo) > 0 {
		best := msg.Photo[len(msg.Photo)-1] // sizes come smallest first
		return usecase.Proof{Kind: model.ProofScreenshot, Value: best.FileID}, true
	}
	if msg.Document != nil {
		return usecase.Proof{Kind: model.ProofScreenshot, Value: msg.Document.FileID, Document: true}, true
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		return usecase.Proof{Kind: model.ProofTxID, Value: text}, true
	}
	return usecase.Proof{}, false
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	from := msg.From
	cmd := msg.Command()

	if b.rateLimiter != nil {
		allowed, err := b.rateLimiter.Allow(ctx, red.UserCommandKey(from.ID, cmd), 20, time.Minute)
		if err != nil {
			b.log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			return b.SendMessage(ctx, from.ID, "Too many commands, please slow down.")
		}
	}

	switch {
	case cmd == "start":
		return b.facade.HandleStart(ctx, from.ID, from.UserName, from.FirstName, from.LastName, msg.CommandArguments())
	case cmd == "help":
		return b.facade.HandleHelp(ctx, from.ID)
	case cmd == "status":
		return b.facade.HandleStatus(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	case cmd == "buy":
		return b.facade.HandleBuy(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	case cmd == "cancel":
		return b.facade.HandleCancel(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	case cmd == "stats":
		return b.facade.HandleStats(ctx, from.ID)
	case strings.HasPrefix(cmd, "confirm_payment_"):
		return b.facade.HandleOperatorResolve(ctx, from.ID, strings.TrimPrefix(cmd, "confirm_payment_"), true)
	case strings.HasPrefix(cmd, "reject_payment_"):
		return b.facade.HandleOperatorResolve(ctx, from.ID, strings.TrimPrefix(cmd, "reject_payment_"), false)
	default:
		return b.SendMessage(ctx, from.ID, "Unknown command. Send /help for the list of commands.")
	}
}

// --- Notifier ---

func (b *Bot) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = buildMarkup(rows)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendPhoto(ctx context.Context, tgID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(tgID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	_, err := b.api.Send(photo)
	return err
}

func (b *Bot) SendDocument(ctx context.Context, tgID int64, fileID, caption string) error {
	doc := tgbotapi.NewDocument(tgID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) SendInvoice(ctx context.Context, tgID int64, inv adapter.Invoice) error {
	cfg := tgbotapi.NewInvoice(tgID, inv.Title, inv.Description, inv.Payload,
		"", // stars invoices take no provider token
		"", starsCurrency,
		[]tgbotapi.LabeledPrice{{Label: inv.Label, Amount: int(inv.StarsAmount)}})
	cfg.SuggestedTipAmounts = []int{}
	_, err := b.api.Send(cfg)
	return err
}

func buildMarkup(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
				continue
			}
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		kb = append(kb, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// --- GroupGate ---

func (b *Bot) CreateInviteLink(ctx context.Context, name string, expireAt time.Time) (string, error) {
	resp, err := b.api.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: b.cfg.GroupID},
		Name:        name,
		ExpireDate:  int(expireAt.Unix()),
		MemberLimit: 1,
	})
	if err != nil {
		return "", err
	}
	var link struct {
		InviteLink string `json:"invite_link"`
	}
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", err
	}
	return link.InviteLink, nil
}

func (b *Bot) RemoveMember(ctx context.Context, tgID int64) (bool, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: b.cfg.GroupID, UserID: tgID},
	})
	if err != nil {
		return false, err
	}
	if member.Status == "left" || member.Status == "kicked" {
		return false, nil
	}

	// Ban then unban: removes the member but lets them rejoin on a fresh
	// invite after renewal.
	if _, err := b.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: b.cfg.GroupID, UserID: tgID},
	}); err != nil {
		return false, err
	}
	if _, err := b.api.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: b.cfg.GroupID, UserID: tgID},
		OnlyIfBanned:     true,
	}); err != nil {
		b.log.Warn().Err(err).Int64("telegram_id", tgID).Msg("unban after kick failed")
	}
	return true, nil
}

func (b *Bot) IsMember(ctx context.Context, tgID int64) (bool, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: b.cfg.GroupID, UserID: tgID},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}
