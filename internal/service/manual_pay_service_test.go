package service

import (
	"context"
	"errors"
	"testing"

	"ticketpos/internal/model"
	"ticketpos/internal/testutil"
)

func TestManualPayCashInfersSecondary(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.SeedAccount(t, db, 7000)
	svc := NewManualPayService(db, "")

	result, err := svc.Pay(context.Background(), &ManualPayRequest{MenuName: "식권 1개", Amount: "5000", Method: "cash"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if result.Restaurant != model.RestaurantSecondary || result.Channel != model.PaymentChannelCash {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := testutil.Points(t, db, account.ID); got != 7000 {
		t.Fatalf("manual pay touched balance: %d", got)
	}

	var payment model.PaymentRecord
	if err := db.Where("payment_no = ?", result.PaymentNo).First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.UserID != nil || payment.CardSuffix != nil || payment.Amount != 5000 {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestManualPayCardKeepsSuffixOnly(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewManualPayService(db, "")

	result, err := svc.Pay(context.Background(), &ManualPayRequest{
		MenuName:   "식권 2개",
		Amount:     "9600",
		Method:     "CARD",
		CardNumber: "1234567812345678",
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if result.Restaurant != model.RestaurantPrimary || result.Channel != model.PaymentChannelCard {
		t.Fatalf("unexpected result %+v", result)
	}

	var payment model.PaymentRecord
	if err := db.Where("payment_no = ?", result.PaymentNo).First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.CardSuffix == nil || *payment.CardSuffix != "5678" {
		t.Fatalf("expected card suffix 5678, got %v", payment.CardSuffix)
	}
}

func TestManualPayUnmatchedAmountIsOther(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewManualPayService(db, "")

	result, err := svc.Pay(context.Background(), &ManualPayRequest{MenuName: "식권 2개", Amount: "7000", Method: "cash"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if result.Restaurant != model.RestaurantOther {
		t.Fatalf("expected other, got %s", result.Restaurant)
	}
}

func TestManualPayValidation(t *testing.T) {
	cases := []struct {
		name  string
		req   ManualPayRequest
		field string
	}{
		{"missing menu", ManualPayRequest{Amount: "5000", Method: "cash"}, "menuName"},
		{"missing method", ManualPayRequest{MenuName: "식권 1개", Amount: "5000"}, "menuName"},
		{"non numeric amount", ManualPayRequest{MenuName: "식권 1개", Amount: "abc", Method: "cash"}, "amount"},
		{"zero amount", ManualPayRequest{MenuName: "식권 1개", Amount: "0", Method: "cash"}, "amount"},
		{"negative amount", ManualPayRequest{MenuName: "식권 1개", Amount: "-4800", Method: "cash"}, "amount"},
		{"fractional amount", ManualPayRequest{MenuName: "식권 1개", Amount: "4800.5", Method: "cash"}, "amount"},
		{"unknown method", ManualPayRequest{MenuName: "식권 1개", Amount: "5000", Method: "coupon"}, "method"},
		{"short card", ManualPayRequest{MenuName: "식권 1개", Amount: "5000", Method: "card", CardNumber: "1234"}, "cardNumber"},
		{"card with dashes", ManualPayRequest{MenuName: "식권 1개", Amount: "5000", Method: "card", CardNumber: "1234-5678-1234-5678"}, "cardNumber"},
		{"missing card", ManualPayRequest{MenuName: "식권 1개", Amount: "5000", Method: "card"}, "cardNumber"},
	}

	db := testutil.NewDB(t)
	svc := NewManualPayService(db, "")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := svc.Pay(context.Background(), &req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, verr.Field)
			}
		})
	}

	if n := testutil.CountRows(t, db, &model.PaymentRecord{}); n != 0 {
		t.Fatalf("rejected requests wrote %d records", n)
	}
}

func TestManualPayTruncatesMenuName(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewManualPayService(db, "")

	long := make([]rune, 300)
	for i := range long {
		long[i] = '가'
	}
	result, err := svc.Pay(context.Background(), &ManualPayRequest{MenuName: string(long), Amount: "1000", Method: "cash"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	var payment model.PaymentRecord
	if err := db.Where("payment_no = ?", result.PaymentNo).First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if n := len([]rune(payment.MenuName)); n != 255 {
		t.Fatalf("expected 255 runes, got %d", n)
	}
}
