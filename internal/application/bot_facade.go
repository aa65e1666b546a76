package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/infra/logging"
	"telegram-club-bot/internal/usecase"
)

const refPayloadPrefix = "ref_"

// BotFacade composes usecases into the bot's conversational surface. The
// Telegram adapter parses updates into facade calls; all replies go out
// through the Notifier port so the facade stays testable without the API.
type BotFacade struct {
	UserUC     usecase.UserUseCase
	Pricing    usecase.PricingUseCase
	PayUC      usecase.PaymentUseCase
	ConfirmUC  usecase.ConfirmationUseCase
	SubUC      usecase.SubscriptionUseCase
	Enforcer   usecase.EnforcerUseCase
	ReferralUC usecase.ReferralUseCase
	StatsUC    usecase.StatsUseCase
	Notifier   adapter.Notifier

	operatorIDs  map[int64]struct{}
	operators    []int64
	cryptoAssets []string
	log          *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	pricing usecase.PricingUseCase,
	payUC usecase.PaymentUseCase,
	confirmUC usecase.ConfirmationUseCase,
	subUC usecase.SubscriptionUseCase,
	enforcer usecase.EnforcerUseCase,
	referralUC usecase.ReferralUseCase,
	statsUC usecase.StatsUseCase,
	notifier adapter.Notifier,
	operatorIDs []int64,
	cryptoAssets []string,
	logger *zerolog.Logger,
) *BotFacade {
	ops := make(map[int64]struct{}, len(operatorIDs))
	for _, id := range operatorIDs {
		ops[id] = struct{}{}
	}
	compLog := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		UserUC:       userUC,
		Pricing:      pricing,
		PayUC:        payUC,
		ConfirmUC:    confirmUC,
		SubUC:        subUC,
		Enforcer:     enforcer,
		ReferralUC:   referralUC,
		StatsUC:      statsUC,
		Notifier:     notifier,
		operatorIDs:  ops,
		operators:    operatorIDs,
		cryptoAssets: cryptoAssets,
		log:          &compLog,
	}
}

func (b *BotFacade) IsOperator(tgID int64) bool {
	_, ok := b.operatorIDs[tgID]
	return ok
}

// ensure registers or refreshes the sender. Every entry point calls it.
func (b *BotFacade) ensure(ctx context.Context, tgID int64, username, firstName, lastName string) (*model.User, error) {
	u, _, err := b.UserUC.EnsureUser(ctx, tgID, username, firstName, lastName)
	return u, err
}

// HandleStart welcomes the user, attributing them to a referrer when the
// deep-link payload carries one.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, firstName, lastName, payload string) error {
	user, created, err := b.UserUC.EnsureUser(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return err
	}

	if created && strings.HasPrefix(payload, refPayloadPrefix) {
		referrerID := strings.TrimPrefix(payload, refPayloadPrefix)
		if err := b.ReferralUC.Attribute(ctx, referrerID, user); err != nil {
			logging.With(ctx, b.log).Warn().Err(err).Str("user_id", user.ID).Msg("referral attribution failed")
		}
	}

	text := fmt.Sprintf("Welcome, %s!\n\nThis bot manages access to the club. Buy a membership, join the group, invite friends.", user.DisplayName())
	return b.Notifier.SendButtons(ctx, tgID, text, mainMenuKeyboard())
}

func (b *BotFacade) HandleHelp(ctx context.Context, tgID int64) error {
	text := "Commands:\n" +
		"/start — main menu\n" +
		"/status — your membership and referrals\n" +
		"/buy — purchase membership or event access\n" +
		"/cancel — abort a pending payment confirmation"
	if b.IsOperator(tgID) {
		text += "\n\nOperator:\n/stats — daily numbers\n/confirm_payment_<id> — approve a payment\n/reject_payment_<id> — reject a payment"
	}
	return b.Notifier.SendMessage(ctx, tgID, text)
}

// HandleStatus reports membership standing and referral progress.
func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64, username, firstName, lastName string) error {
	user, err := b.ensure(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sub, err := b.SubUC.CheckActive(ctx, user.ID)
	switch {
	case err == nil:
		sb.WriteString(fmt.Sprintf("✅ Membership active, %d day(s) left (until %s).\n",
			sub.DaysLeft(timeNow()), sub.EndAt.Format("2006-01-02")))
	case errors.Is(err, domain.ErrNoActiveSubscription):
		sb.WriteString("❌ No active membership. Use /buy to get one.\n")
	default:
		return err
	}

	n, err := b.ReferralUC.CountFor(ctx, user.ID)
	if err != nil {
		return err
	}
	sb.WriteString(fmt.Sprintf("\n👥 Referrals: %d\nYour invite link:\n%s", n, b.ReferralUC.Link(user)))
	return b.Notifier.SendMessage(ctx, tgID, sb.String())
}

// HandleBuy shows the product catalog.
func (b *BotFacade) HandleBuy(ctx context.Context, tgID int64, username, firstName, lastName string) error {
	if _, err := b.ensure(ctx, tgID, username, firstName, lastName); err != nil {
		return err
	}
	return b.Notifier.SendButtons(ctx, tgID, "What would you like to buy?", productKeyboard(b.Pricing.List()))
}

// HandleCancel aborts any pending proof wait. The ledger row stays pending.
func (b *BotFacade) HandleCancel(ctx context.Context, tgID int64, username, firstName, lastName string) error {
	user, err := b.ensure(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return err
	}
	if err := b.ConfirmUC.Cancel(ctx, user.ID); err != nil {
		return err
	}
	return b.Notifier.SendMessage(ctx, tgID, "Cancelled. Use /buy to start over.")
}

// HandleCallback routes inline button presses.
func (b *BotFacade) HandleCallback(ctx context.Context, tgID int64, username, firstName, lastName, data string) error {
	user, err := b.ensure(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return err
	}

	parts := strings.Split(data, ":")
	switch parts[0] {
	case cbMenu:
		return b.Notifier.SendButtons(ctx, tgID, "Main menu:", mainMenuKeyboard())
	case cbCancel:
		if err := b.ConfirmUC.Cancel(ctx, user.ID); err != nil {
			return err
		}
		return b.Notifier.SendMessage(ctx, tgID, "Cancelled. Use /buy to start over.")
	case cbJoin:
		return b.grantInvite(ctx, tgID, user.ID)
	case cbBuy:
		if len(parts) == 1 {
			return b.Notifier.SendButtons(ctx, tgID, "What would you like to buy?", productKeyboard(b.Pricing.List()))
		}
		product, err := b.Pricing.Resolve(model.ProductType(parts[1]))
		if err != nil {
			return b.Notifier.SendMessage(ctx, tgID, "That product is no longer available.")
		}
		text := fmt.Sprintf("%s — %d\n%s\n\nChoose a payment method:", product.DisplayName, product.Amount, product.Description)
		return b.Notifier.SendButtons(ctx, tgID, text, methodKeyboard(product.Type))
	case cbMethod:
		if len(parts) != 3 {
			return b.Notifier.SendMessage(ctx, tgID, "Something went wrong, try /buy again.")
		}
		return b.chooseMethod(ctx, tgID, user.ID, model.ProductType(parts[1]), model.MethodKind(parts[2]))
	case cbAsset:
		if len(parts) != 3 {
			return b.Notifier.SendMessage(ctx, tgID, "Something went wrong, try /buy again.")
		}
		return b.chooseAsset(ctx, tgID, user.ID, parts[1], parts[2])
	}
	logging.With(ctx, b.log).Warn().Str("data", data).Msg("unrecognized callback")
	return nil
}

func (b *BotFacade) chooseMethod(ctx context.Context, tgID int64, userID string, product model.ProductType, kind model.MethodKind) error {
	out, err := b.PayUC.ChooseMethod(ctx, userID, product, kind)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProduct) || errors.Is(err, domain.ErrInvalidArgument) {
			return b.Notifier.SendMessage(ctx, tgID, "That option is no longer available, try /buy again.")
		}
		return err
	}

	switch kind {
	case model.MethodCard:
		text := fmt.Sprintf("Transfer %d to:\n%s\n\nThen send a screenshot of the transfer here. /cancel to abort.",
			out.Payment.Amount, out.CardDetails)
		return b.Notifier.SendMessage(ctx, tgID, text)
	case model.MethodStars:
		return b.Notifier.SendInvoice(ctx, tgID, *out.Invoice)
	case model.MethodCrypto:
		return b.Notifier.SendButtons(ctx, tgID, "Choose an asset:", assetKeyboard(out.Payment.ID, b.cryptoAssets))
	}
	return nil
}

func (b *BotFacade) chooseAsset(ctx context.Context, tgID int64, userID, paymentID, asset string) error {
	out, err := b.PayUC.ChooseCryptoAsset(ctx, userID, paymentID, asset)
	switch {
	case errors.Is(err, domain.ErrAssetUnavailable):
		return b.Notifier.SendMessage(ctx, tgID, fmt.Sprintf("%s is temporarily unavailable, pick another asset.", asset))
	case errors.Is(err, domain.ErrPaymentNotFound), errors.Is(err, domain.ErrInvalidArgument):
		return b.Notifier.SendMessage(ctx, tgID, "That payment is no longer active, start over with /buy.")
	case err != nil:
		return err
	}

	text := fmt.Sprintf("Send %.8f %s to:\n%s\n\nThen paste the transaction id here. /cancel to abort.",
		out.CryptoAmount, out.Asset, out.WalletAddress)
	return b.Notifier.SendMessage(ctx, tgID, text)
}

// HandleProofMessage consumes a plain message from a user who may be in a
// proof wait. The adapter maps photos and documents to screenshot proofs
// and bare text to a transaction id.
func (b *BotFacade) HandleProofMessage(ctx context.Context, tgID int64, username, firstName, lastName string, proof usecase.Proof) error {
	user, err := b.ensure(ctx, tgID, username, firstName, lastName)
	if err != nil {
		return err
	}

	out, err := b.ConfirmUC.SubmitProof(ctx, user.ID, proof)
	if err != nil {
		if errors.Is(err, domain.ErrUserBusy) {
			return b.Notifier.SendMessage(ctx, tgID, "One moment, still processing your previous message.")
		}
		return err
	}

	switch out.Status {
	case usecase.ProofAccepted:
		return b.Notifier.SendMessage(ctx, tgID, "Thanks! Your payment is under review; you will hear back shortly.")
	case usecase.ProofWrongKind:
		if out.Kind == model.ProofScreenshot {
			return b.Notifier.SendMessage(ctx, tgID, "Please send a screenshot of the transfer (photo or file), or /cancel.")
		}
		return b.Notifier.SendMessage(ctx, tgID, "Please paste the transaction id as text, or /cancel.")
	case usecase.ProofPaymentMissing:
		return b.Notifier.SendMessage(ctx, tgID, "That payment is no longer active. Start over with /buy.")
	default: // ProofNoPending
		return b.Notifier.SendMessage(ctx, tgID, "I didn't understand that. Send /help for commands.")
	}
}

// HandleSuccessfulPayment finalizes a platform-currency checkout.
func (b *BotFacade) HandleSuccessfulPayment(ctx context.Context, tgID int64, payload string) error {
	out, err := b.PayUC.ConfirmPlatform(ctx, payload)
	if err != nil {
		b.log.Error().Err(err).Str("payload", payload).Msg("platform payment resolution failed")
		return b.Notifier.SendMessage(ctx, tgID, "Payment received but could not be matched; an operator will sort it out.")
	}
	if out.Subscription == nil && !out.AlreadyResolved {
		// Event purchases are fulfilled by hand; without this message
		// the sale never reaches anyone.
		b.notifyOperators(ctx, fmt.Sprintf(
			"💫 Stars payment confirmed: %s for %d ⭐ (payment %s, user %s). Arrange the booking.",
			out.Product.DisplayName, usecase.StarsAmount(out.Payment.Amount), out.Payment.ID, out.Payment.UserID))
	}
	return b.announceConfirmed(ctx, tgID, out)
}

// notifyOperators fans a message out to the operator roster; one
// unreachable operator must not hide the message from the rest.
func (b *BotFacade) notifyOperators(ctx context.Context, text string) {
	for _, opID := range b.operators {
		if err := b.Notifier.SendMessage(ctx, opID, text); err != nil {
			b.log.Warn().Err(err).Int64("operator_id", opID).Msg("operator notification failed")
		}
	}
}

// HandleOperatorResolve executes /confirm_payment_<id> or /reject_payment_<id>.
func (b *BotFacade) HandleOperatorResolve(ctx context.Context, operatorTgID int64, paymentID string, approve bool) error {
	if !b.IsOperator(operatorTgID) {
		return b.Notifier.SendMessage(ctx, operatorTgID, "You are not authorized to use this command.")
	}

	var (
		out *usecase.ConfirmOutcome
		err error
	)
	if approve {
		out, err = b.PayUC.Confirm(ctx, paymentID)
	} else {
		out, err = b.PayUC.Fail(ctx, paymentID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return b.Notifier.SendMessage(ctx, operatorTgID, fmt.Sprintf("Payment %s not found.", paymentID))
		}
		// Partial resolution (e.g. grant failed after confirm) still
		// reaches the operator.
		b.log.Error().Err(err).Str("payment_id", paymentID).Msg("payment resolution error")
		return b.Notifier.SendMessage(ctx, operatorTgID, fmt.Sprintf("Payment %s: %v", paymentID, err))
	}
	if out.AlreadyResolved {
		return b.Notifier.SendMessage(ctx, operatorTgID, fmt.Sprintf("Payment %s was already %s.", paymentID, out.Payment.Status))
	}

	payer, err := b.UserUC.Find(ctx, out.Payment.UserID)
	if err != nil {
		return err
	}
	if approve {
		if err := b.announceConfirmed(ctx, payer.TelegramID, out); err != nil {
			b.log.Warn().Err(err).Str("payment_id", paymentID).Msg("payer notification failed")
		}
	} else {
		text := "Unfortunately your payment could not be verified. Contact an operator or try again with /buy."
		if err := b.Notifier.SendMessage(ctx, payer.TelegramID, text); err != nil {
			b.log.Warn().Err(err).Str("payment_id", paymentID).Msg("payer notification failed")
		}
	}
	verdict := "rejected"
	if approve {
		verdict = "confirmed"
	}
	return b.Notifier.SendMessage(ctx, operatorTgID, fmt.Sprintf("Payment %s %s.", paymentID, verdict))
}

// HandleStats renders the operator statistics summary on demand.
func (b *BotFacade) HandleStats(ctx context.Context, operatorTgID int64) error {
	if !b.IsOperator(operatorTgID) {
		return b.Notifier.SendMessage(ctx, operatorTgID, "You are not authorized to use this command.")
	}
	snap, err := b.StatsUC.Collect(ctx, timeNow())
	if err != nil {
		return err
	}
	return b.Notifier.SendMessage(ctx, operatorTgID, FormatSnapshot(snap))
}

// announceConfirmed congratulates the payer and hands over the invite
// link when the purchase granted membership.
func (b *BotFacade) announceConfirmed(ctx context.Context, tgID int64, out *usecase.ConfirmOutcome) error {
	if out.Subscription == nil {
		return b.Notifier.SendMessage(ctx, tgID,
			fmt.Sprintf("✅ Payment confirmed. You are booked for: %s.", out.Product.DisplayName))
	}
	text := fmt.Sprintf("✅ Payment confirmed! Membership active until %s.", out.Subscription.EndAt.Format("2006-01-02"))
	if err := b.Notifier.SendMessage(ctx, tgID, text); err != nil {
		return err
	}
	return b.grantInvite(ctx, tgID, out.Payment.UserID)
}

func (b *BotFacade) grantInvite(ctx context.Context, tgID int64, userID string) error {
	link, err := b.Enforcer.GrantAccess(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNoActiveSubscription):
		return b.Notifier.SendMessage(ctx, tgID, "You need an active membership to join. Use /buy first.")
	case err != nil:
		b.log.Error().Err(err).Str("user_id", userID).Msg("invite grant failed")
		return b.Notifier.SendMessage(ctx, tgID, "Could not create an invite right now, try again in a minute.")
	}
	return b.Notifier.SendMessage(ctx, tgID,
		fmt.Sprintf("Here is your personal invite link (valid 24h, single use):\n%s", link))
}

// FormatSnapshot renders a stats snapshot for operator chats.
func FormatSnapshot(s *usecase.Snapshot) string {
	return fmt.Sprintf(
		"📊 Stats for %s\n\nUsers: %d\nActive memberships: %d\nReferrals: %d\nPayments (24h): %d",
		s.TakenAt.Format("2006-01-02"), s.TotalUsers, s.ActiveSubs, s.TotalReferrals, s.PaymentsLastDay)
}
