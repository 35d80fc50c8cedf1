package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticketpos/internal/model"
	"ticketpos/internal/qrtoken"
	"ticketpos/internal/repository"
	"ticketpos/internal/testutil"

	"gorm.io/gorm"
)

var testPolicy = qrtoken.Policy{FreshnessWindow: time.Minute, GracePeriod: 5 * time.Minute}

func newRedeemService(t *testing.T, db *gorm.DB, now time.Time, reuse bool, topic string) *RedeemService {
	t.Helper()
	validator := qrtoken.NewValidator(repository.NewTokenRepository(db), testPolicy, reuse).
		WithClock(func() time.Time { return now })
	svc := NewRedeemService(db, validator, topic)
	svc.now = func() time.Time { return now }
	return svc
}

func TestRedeemExactBalanceThenRetry(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 4800)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now.Add(-10*time.Second))
	svc := newRedeemService(t, db, now, false, "")

	result, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Deducted != 4800 || result.BalanceAfter != 0 || result.Restaurant != model.RestaurantPrimary {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := testutil.Points(t, db, account.ID); got != 0 {
		t.Fatalf("expected balance 0, got %d", got)
	}

	_, err = svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if !errors.Is(err, qrtoken.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on retry, got %v", err)
	}
	if got := testutil.Points(t, db, account.ID); got != 0 {
		t.Fatalf("balance changed on retry: %d", got)
	}
	if n := testutil.CountRows(t, db, &model.PaymentRecord{}); n != 1 {
		t.Fatalf("expected 1 payment record, got %d", n)
	}
}

func TestRedeemWritesPaymentRecord(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 20000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now)
	svc := newRedeemService(t, db, now, false, "")

	result, err := svc.RedeemToken(context.Background(), raw, model.RestaurantSecondary, 3)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	var payment model.PaymentRecord
	if err := db.Where("payment_no = ?", result.PaymentNo).First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Amount != 15000 || payment.Channel != model.PaymentChannelToken || payment.MenuName != "식권 3개" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if payment.UserID == nil || *payment.UserID != account.ID || payment.CardSuffix != nil {
		t.Fatalf("unexpected payment owner %+v", payment)
	}
	if payment.Restaurant != model.RestaurantSecondary {
		t.Fatalf("expected secondary restaurant, got %s", payment.Restaurant)
	}
	if got := testutil.Points(t, db, account.ID); got != 5000 {
		t.Fatalf("expected balance 5000, got %d", got)
	}
}

func TestRedeemFutureTokenNeverDebits(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 10000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now.Add(30*time.Second))
	svc := newRedeemService(t, db, now, false, "")

	_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if !errors.Is(err, qrtoken.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if got := testutil.Points(t, db, account.ID); got != 10000 {
		t.Fatalf("balance changed: %d", got)
	}
}

func TestRedeemStaleTokenAcceptedOnce(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 10000)
	token, raw := testutil.SeedToken(t, db, account.ID, "h1", now.Add(-2*time.Minute))
	// 旧行为下有效期内的兑换码可重复使用，但过了有效期只能兑换一次
	svc := newRedeemService(t, db, now, true, "")

	if _, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1); err != nil {
		t.Fatalf("first stale redeem: %v", err)
	}

	stored, err := repository.NewTokenRepository(db).GetByID(context.Background(), token.ID)
	if err != nil || stored == nil || !stored.IsUsed {
		t.Fatalf("expected token marked used, got %+v, %v", stored, err)
	}

	_, err = svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if !errors.Is(err, qrtoken.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if got := testutil.Points(t, db, account.ID); got != 5200 {
		t.Fatalf("expected one debit, balance %d", got)
	}
}

func TestRedeemLiveTokenReusableWhenConfigured(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 10000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now.Add(-5*time.Second))
	svc := newRedeemService(t, db, now, true, "")

	for i := 0; i < 2; i++ {
		if _, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1); err != nil {
			t.Fatalf("redeem #%d: %v", i+1, err)
		}
	}
	if got := testutil.Points(t, db, account.ID); got != 400 {
		t.Fatalf("expected balance 400, got %d", got)
	}
}

func TestRedeemExpiredBeyondGrace(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 10000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now.Add(-7*time.Minute))
	svc := newRedeemService(t, db, now, false, "")

	_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if !errors.Is(err, qrtoken.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedeemInsufficientBalanceRollsBackClaim(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 4000)
	token, raw := testutil.SeedToken(t, db, account.ID, "h1", now)
	svc := newRedeemService(t, db, now, false, "")

	_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	stored, _ := repository.NewTokenRepository(db).GetByID(context.Background(), token.ID)
	if stored == nil || stored.IsUsed {
		t.Fatalf("token should remain unclaimed after rollback: %+v", stored)
	}
	if got := testutil.Points(t, db, account.ID); got != 4000 {
		t.Fatalf("balance changed: %d", got)
	}
	if n := testutil.CountRows(t, db, &model.PaymentRecord{}); n != 0 {
		t.Fatalf("expected no payment records, got %d", n)
	}
}

func TestRedeemMissingAccountIsInsufficient(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	_, raw := testutil.SeedToken(t, db, 999, "h1", now)
	svc := newRedeemService(t, db, now, false, "")

	_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestRedeemRejectsUnpricedRestaurant(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 10000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now)
	svc := newRedeemService(t, db, now, false, "")

	_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantOther, 1)
	if err == nil {
		t.Fatal("expected error for unpriced restaurant")
	}
	if got := testutil.Points(t, db, account.ID); got != 10000 {
		t.Fatalf("balance changed: %d", got)
	}
}

func TestConcurrentRedeemNeverOverdraws(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 6000)
	_, rawA := testutil.SeedToken(t, db, account.ID, "ha", now)
	_, rawB := testutil.SeedToken(t, db, account.ID, "hb", now)
	svc := newRedeemService(t, db, now, false, "")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for _, raw := range []string{rawA, rawB} {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(raw)
	}
	wg.Wait()

	if successes != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success, got %d successes %d rejections", successes, rejected)
	}
	if got := testutil.Points(t, db, account.ID); got != 1200 {
		t.Fatalf("expected balance 1200, got %d", got)
	}
}

func TestConcurrentRedeemSameTokenClaimedOnce(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 100000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now)
	svc := newRedeemService(t, db, now, false, "")

	const attempts = 5
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
		} else if !errors.Is(err, qrtoken.ErrTokenNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if got := testutil.Points(t, db, account.ID); got != 95200 {
		t.Fatalf("expected single debit, balance %d", got)
	}
}

func TestRedeemEnqueuesPaymentEvent(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	account := testutil.SeedAccount(t, db, 10000)
	_, raw := testutil.SeedToken(t, db, account.ID, "h1", now)
	svc := newRedeemService(t, db, now, false, "pos_payment_result")

	result, err := svc.RedeemToken(context.Background(), raw, model.RestaurantPrimary, 2)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	var msg model.OutboxMessage
	if err := db.First(&msg).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if msg.Topic != "pos_payment_result" || msg.MessageKey != result.PaymentNo || msg.Status != model.OutboxStatusPending {
		t.Fatalf("unexpected outbox message %+v", msg)
	}
}
