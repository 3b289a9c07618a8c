package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vaultgram/vaultgram-server/internal/log"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/storage"
	tele "gopkg.in/telebot.v3"
)

const usageText = `Send me a link to a message from a restricted channel or group and I will deliver you a copy.

Supported links: t.me/<channel>/<id>, t.me/c/<id>/<id>, comment and album links.
Private chat? Send its invite link first so I can join.

/user - your remaining balance
/buy - purchase more relays
/check - your pending orders
/invite - your referral link`

var (
	btnBuy   = tele.Btn{Unique: "buy"}
	btnCheck = tele.Btn{Unique: "check"}
)

func (t *Telegram) registerHandlers() {
	t.bot.Handle("/start", t.onStart)
	t.bot.Handle("/user", t.onUser)
	t.bot.Handle("/buy", t.onBuy)
	t.bot.Handle("/check", t.onCheck)
	t.bot.Handle("/invite", t.onInvite)
	t.bot.Handle(&btnBuy, t.onBuyCallback)
	t.bot.Handle(&btnCheck, t.onCheckCallback)
	t.bot.Handle(tele.OnText, t.onText)
}

// onStart greets the user, redeeming a referral code if one rides on the
// deep link payload.
func (t *Telegram) onStart(c tele.Context) error {
	payload := strings.ToUpper(strings.TrimSpace(c.Message().Payload))
	if payload != "" {
		if reply := t.redeemInvite(c, payload); reply != "" {
			if err := c.Send(reply); err != nil {
				return err
			}
		}
	}
	return c.Send(usageText)
}

func (t *Telegram) redeemInvite(c tele.Context, code string) string {
	ctx := context.Background()
	userID := model.UserID(c.Sender().ID)

	inviterID, err := t.db.RedeemInvite(ctx, code, userID, storage.CurrentDate())
	switch {
	case err == nil:
		reward := t.config.Quota.InviteReward
		if err := t.NotifyUser(inviterID, fmt.Sprintf("Your invite was accepted, you earned %d paid relays!", reward)); err != nil {
			t.logger.Warn("inviter notice failed", slog.Int64("inviter", inviterID.ToInt64()), log.Err(err))
		}
		return fmt.Sprintf("Welcome! Your inviter earned %d paid relays.", reward)
	case errors.Is(err, storage.ErrInviteInvalidCode):
		return "This invite code does not exist."
	case errors.Is(err, storage.ErrSelfInvite):
		return "You cannot redeem your own invite."
	case errors.Is(err, storage.ErrAlreadyInvited):
		return "You have already been invited before."
	case errors.Is(err, storage.ErrInviteeActive):
		return "Invites are for new users only."
	case errors.Is(err, storage.ErrInviteCapReached):
		return "This invite has reached its usage limit."
	default:
		t.logger.Error("invite redemption failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return "Could not redeem the invite, try again later."
	}
}

func (t *Telegram) onUser(c tele.Context) error {
	userID := model.UserID(c.Sender().ID)

	quota, err := t.db.QuotaForUser(context.Background(), userID, storage.CurrentDate())
	if err != nil {
		t.logger.Error("quota lookup failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return c.Send("Could not load your balance, try again later.")
	}

	return c.Send(fmt.Sprintf(
		"Your balance:\nFree today: %d\nPaid: %d\n\nThe free allowance resets at midnight UTC.",
		quota.FreeQuota, quota.PaidQuota))
}

func (t *Telegram) onBuy(c tele.Context) error {
	if t.config.Payment.Wallet == "" {
		return c.Send("Purchases are not available right now.")
	}

	markup := t.bot.NewMarkup()
	rows := make([]tele.Row, 0, len(packages))
	for _, p := range packages {
		label := fmt.Sprintf("%s: %d relays / %.0f$", p.Name, p.Quota, p.Price)
		rows = append(rows, markup.Row(markup.Data(label, btnBuy.Unique, p.Key)))
	}
	markup.Inline(rows...)

	return c.Send("Choose a package. Payment is in USDT (TRC20).", markup)
}

func (t *Telegram) onBuyCallback(c tele.Context) error {
	userID := model.UserID(c.Sender().ID)

	pkg, ok := packageByKey(c.Data())
	if !ok {
		return c.Send("Unknown package.")
	}
	if t.config.Payment.Wallet == "" {
		return c.Send("Purchases are not available right now.")
	}

	order, err := t.db.CreateOrder(context.Background(), userID, pkg.Name, pkg.Price, pkg.Quota, t.config.Payment.Wallet)
	if err != nil {
		t.logger.Error("order creation failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return c.Send("Could not create the order, try again later.")
	}

	if err := t.NotifyAdmin(fmt.Sprintf("New order %s: %s for user %s, %.5f USDT", order.OrderID, order.PackageName, order.UserID, order.Amount)); err != nil {
		t.logger.Warn("admin notice failed", log.Err(err))
	}

	markup := t.bot.NewMarkup()
	markup.Inline(markup.Row(markup.Data("Check payment", btnCheck.Unique, order.OrderID)))

	return c.Edit(orderText(order), markup)
}

func (t *Telegram) onCheck(c tele.Context) error {
	userID := model.UserID(c.Sender().ID)

	payload := strings.TrimSpace(c.Message().Payload)
	if payload != "" {
		return t.sendOrderStatus(c, payload)
	}

	orders, err := t.db.UserPendingOrders(context.Background(), userID)
	if err != nil {
		t.logger.Error("order listing failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return c.Send("Could not load your orders, try again later.")
	}
	if len(orders) == 0 {
		return c.Send("You have no pending orders. Use /buy to create one.")
	}

	var sb strings.Builder
	sb.WriteString("Your pending orders:\n")
	for i := range orders {
		order := &orders[i]
		fmt.Fprintf(&sb, "\n%s - %s, %.5f USDT, created %s UTC",
			order.OrderID, order.PackageName, order.Amount, order.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	sb.WriteString("\n\nUse /check <order-id> for payment details.")
	return c.Send(sb.String())
}

func (t *Telegram) onCheckCallback(c tele.Context) error {
	orderID := strings.TrimSpace(c.Data())

	order, err := t.db.OrderByID(context.Background(), orderID)
	if errors.Is(err, storage.ErrOrderNotFound) {
		return c.Edit("Order not found.")
	}
	if err != nil {
		t.logger.Error("order lookup failed", slog.String("order", orderID), log.Err(err))
		return c.Send("Could not load the order, try again later.")
	}

	if order.Status == model.OrderPending {
		markup := t.bot.NewMarkup()
		markup.Inline(markup.Row(markup.Data("Check payment", btnCheck.Unique, order.OrderID)))
		return c.Edit(orderText(order), markup)
	}
	return c.Edit(orderText(order))
}

func (t *Telegram) sendOrderStatus(c tele.Context, orderID string) error {
	order, err := t.db.OrderByID(context.Background(), orderID)
	if errors.Is(err, storage.ErrOrderNotFound) {
		return c.Send("Order not found.")
	}
	if err != nil {
		t.logger.Error("order lookup failed", slog.String("order", orderID), log.Err(err))
		return c.Send("Could not load the order, try again later.")
	}
	return c.Send(orderText(order))
}

// orderText renders one order for the user. The amount warning matters: the
// randomized fraction is how the payment is recognized, a rounded transfer
// will never confirm.
func orderText(order *model.Order) string {
	switch order.Status {
	case model.OrderCompleted:
		return fmt.Sprintf("Order %s is completed. %d relays were credited to your balance.", order.OrderID, order.QuotaAmount)
	case model.OrderCancelled:
		return fmt.Sprintf("Order %s was cancelled. Create a new one with /buy.", order.OrderID)
	default:
		return fmt.Sprintf(
			"Order %s - %s (%d relays)\n\nSend exactly %.5f USDT (TRC20) to:\n%s\n\nThe amount must match to the last digit, it identifies your order. Confirmation is automatic and usually takes a few minutes.",
			order.OrderID, order.PackageName, order.QuotaAmount, order.Amount, order.PaymentAddress)
	}
}

func (t *Telegram) onInvite(c tele.Context) error {
	ctx := context.Background()
	userID := model.UserID(c.Sender().ID)

	code, err := t.db.InviteCodeForUser(ctx, userID)
	if err != nil {
		t.logger.Error("invite code lookup failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return c.Send("Could not load your invite, try again later.")
	}

	redeemed, limit, err := t.db.InviteStats(ctx, userID)
	if err != nil {
		t.logger.Error("invite stats failed", slog.Int64("user", userID.ToInt64()), log.Err(err))
		return c.Send("Could not load your invite, try again later.")
	}

	return c.Send(fmt.Sprintf(
		"Your invite code: %s\nShare it: https://t.me/%s?start=%s\n\nEach new user who joins earns you %d paid relays. Used %d of %d.",
		code, t.Username(), code, t.config.Quota.InviteReward, redeemed, limit))
}

// onText feeds free text into the relay flow. A silent outcome means the text
// carried no link and is none of our business.
func (t *Telegram) onText(c tele.Context) error {
	userID := model.UserID(c.Sender().ID)

	outcome := t.relayer.Process(context.Background(), userID, c.Text())
	if outcome.Reply == "" {
		return nil
	}
	return c.Send(outcome.Reply)
}
