// Package payment drives pending orders to a terminal state: it expires
// orders that outlived the payment window and confirms orders whose unique
// amount shows up as a confirmed transfer in the external ledger.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/log"
	"github.com/vaultgram/vaultgram-server/internal/metrics"
	"github.com/vaultgram/vaultgram-server/internal/model"
	"github.com/vaultgram/vaultgram-server/internal/storage"
	"github.com/vaultgram/vaultgram-server/internal/tron"
)

// matchEpsilon is the tolerance when comparing a ledger amount against an
// order amount. Prices carry five decimals, so anything below half a unit of
// the sixth decimal is a float artifact, not a different payment.
const matchEpsilon = 0.00001

// Ledger is the external transfer source, satisfied by tron.Client.
type Ledger interface {
	Enabled() bool
	Transfers(ctx context.Context, wallet string) ([]tron.Transfer, error)
	Memo(ctx context.Context, txID string) (string, error)
}

// Notifier delivers order lifecycle notices. Satisfied by the bot.
type Notifier interface {
	NotifyUser(userID model.UserID, text string) error
	NotifyAdmin(text string) error
}

type Reconciler struct {
	storage *storage.Storage
	ledger  Ledger
	notify  Notifier
	metrics metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
}

func NewReconciler(cfg *config.PaymentConfig, store *storage.Storage, ledger Ledger, notify Notifier, m metrics.Metrics, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		storage: store,
		ledger:  ledger,
		notify:  notify,
		metrics: m,
		logger:  logger,
		timeout: cfg.OrderTimeout,
	}
}

// Sweep runs one reconciliation pass over every pending order. Transport
// failures are logged and leave the order pending for the next pass; an
// error return means the work list itself could not be read.
func (r *Reconciler) Sweep(ctx context.Context) error {
	pending, err := r.storage.PendingOrders(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	r.logger.Debug("reconciling pending orders", slog.Int("count", len(pending)))
	now := time.Now().UTC()
	today := storage.CurrentDate()

	// The wallet is shared across orders, one ledger fetch per address.
	transfersByWallet := make(map[string][]tron.Transfer)

	for i := range pending {
		order := &pending[i]

		if order.Expired(now, r.timeout) {
			r.expire(ctx, order)
			continue
		}

		if !r.ledger.Enabled() {
			if err := r.storage.TouchOrderChecked(ctx, order.OrderID, now); err != nil {
				r.logger.Error("touch order failed", slog.String("order", order.OrderID), log.Err(err))
			}
			continue
		}

		transfers, ok := transfersByWallet[order.PaymentAddress]
		if !ok {
			transfers, err = r.ledger.Transfers(ctx, order.PaymentAddress)
			if err != nil {
				r.logger.Error("ledger query failed",
					slog.String("wallet", order.PaymentAddress), log.Err(err))
				continue
			}
			transfersByWallet[order.PaymentAddress] = transfers
		}

		matched := false
		for _, transfer := range transfers {
			if math.Abs(transfer.Amount-order.Amount) < matchEpsilon {
				r.confirm(ctx, order, transfer, today)
				matched = true
				break
			}
		}
		if !matched {
			if err := r.storage.TouchOrderChecked(ctx, order.OrderID, now); err != nil {
				r.logger.Error("touch order failed", slog.String("order", order.OrderID), log.Err(err))
			}
		}
	}
	return nil
}

func (r *Reconciler) expire(ctx context.Context, order *model.Order) {
	if _, err := r.storage.CancelOrder(ctx, order.OrderID); err != nil {
		r.logger.Error("cancel expired order failed", slog.String("order", order.OrderID), log.Err(err))
		return
	}
	r.logger.Info("order expired", slog.String("order", order.OrderID))
	r.metrics.LogEvent("order_expired", map[string]string{"package": order.PackageName}, map[string]interface{}{"count": 1})

	userID, err := model.ParseUserID(order.UserID)
	if err != nil {
		return
	}
	text := fmt.Sprintf(
		"Order %s (%s, %.5f USDT) was cancelled: not paid within the payment window.\n"+
			"Pick a package again with /buy if you still want it.",
		order.OrderID, order.PackageName, order.Amount)
	if err := r.notify.NotifyUser(userID, text); err != nil {
		r.logger.Warn("cancel notice failed", slog.String("order", order.OrderID), log.Err(err))
	}
}

func (r *Reconciler) confirm(ctx context.Context, order *model.Order, transfer tron.Transfer, today string) {
	memo, err := r.ledger.Memo(ctx, transfer.TxID)
	if err != nil {
		// Auditing extra only, the match stands without it.
		r.logger.Warn("memo lookup failed", slog.String("tx", transfer.TxID), log.Err(err))
	}
	if err := r.storage.SetOrderTxInfo(ctx, order.OrderID, transfer.TxID, memo); err != nil {
		r.logger.Error("record tx info failed", slog.String("order", order.OrderID), log.Err(err))
	}

	completed, err := r.storage.CompleteOrder(ctx, order.OrderID, transfer.TxID, today)
	if err != nil {
		r.logger.Error("complete order failed", slog.String("order", order.OrderID), log.Err(err))
		return
	}
	r.logger.Info("order confirmed",
		slog.String("order", order.OrderID),
		slog.String("tx", transfer.TxID),
		slog.Float64("amount", transfer.Amount))
	r.metrics.LogEvent("order_completed", map[string]string{"package": completed.PackageName}, map[string]interface{}{
		"amount": completed.Amount,
		"quota":  completed.QuotaAmount,
	})

	userID, err := model.ParseUserID(completed.UserID)
	if err != nil {
		return
	}
	text := fmt.Sprintf(
		"Payment received, order %s is complete.\n"+
			"Package: %s\nCredited: %d relays\n\nCheck your balance with /user.",
		completed.OrderID, completed.PackageName, completed.QuotaAmount)
	if err := r.notify.NotifyUser(userID, text); err != nil {
		r.logger.Warn("completion notice failed", slog.String("order", completed.OrderID), log.Err(err))
	}

	admin := fmt.Sprintf("Auto-confirmed order %s\nUser: %s\nAmount: %.5f USDT\nTx: %s",
		completed.OrderID, completed.UserID, completed.Amount, transfer.TxID)
	if err := r.notify.NotifyAdmin(admin); err != nil {
		r.logger.Warn("admin notice failed", slog.String("order", completed.OrderID), log.Err(err))
	}
}
