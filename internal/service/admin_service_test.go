package service

import (
	"errors"
	"testing"

	"smmpanel/internal/model"
	"smmpanel/internal/repository"
)

func TestAdminService_AdjustBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewAdminService(db, testConfig())

	seedUser(t, db, "u1", 100)

	resp, err := svc.AdjustBalance(testCtx, true, "u1", 50, DirectionAdd, "手工补偿")
	if err != nil {
		t.Fatalf("增加调整失败: %v", err)
	}
	if resp.Balance != 150 {
		t.Errorf("调整后余额期望 150, 得到 %.4f", resp.Balance)
	}

	trans := lastJournal(t, db, "u1")
	if trans.Type != model.TransactionTypeAdminAdjust {
		t.Errorf("流水类型期望 ADMIN_ADJUST, 得到 %s", trans.Type)
	}
	if trans.Amount != 50 {
		t.Errorf("流水金额期望 50, 得到 %.4f", trans.Amount)
	}
	if trans.Remark != "手工补偿" {
		t.Errorf("备注期望透传, 得到 %s", trans.Remark)
	}

	resp, err = svc.AdjustBalance(testCtx, true, "u1", 30, DirectionDeduct, "")
	if err != nil {
		t.Fatalf("扣减调整失败: %v", err)
	}
	if resp.Balance != 120 {
		t.Errorf("调整后余额期望 120, 得到 %.4f", resp.Balance)
	}
}

func TestAdminService_AdjustBalanceNotAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAdminService(db, testConfig())

	seedUser(t, db, "u1", 100)

	_, err := svc.AdjustBalance(testCtx, false, "u1", 50, DirectionAdd, "")
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("期望 ErrNotAdmin, 得到: %v", err)
	}
	if got := userBalance(t, db, "u1"); got != 100 {
		t.Errorf("无权限时余额不应变动, 期望 100, 得到 %.4f", got)
	}
}

// 扣减方向共享台账的余额不足保护
func TestAdminService_AdjustBalanceInsufficient(t *testing.T) {
	db := newTestDB(t)
	svc := NewAdminService(db, testConfig())

	seedUser(t, db, "u1", 30)

	_, err := svc.AdjustBalance(testCtx, true, "u1", 50, DirectionDeduct, "")
	if !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Fatalf("期望 ErrBalanceNotEnough, 得到: %v", err)
	}
	if got := userBalance(t, db, "u1"); got != 30 {
		t.Errorf("余额期望 30, 得到 %.4f", got)
	}
	if got := journalCount(t, db, "u1"); got != 0 {
		t.Errorf("失败调整不应留流水, 期望 0, 得到 %d", got)
	}
}

func TestAdminService_Overview(t *testing.T) {
	db := newTestDB(t)
	svc := NewAdminService(db, testConfig())

	seedUser(t, db, "u1", 100)
	seedUser(t, db, "u2", 200)

	if err := db.Create(&model.Order{
		OrderNo: "ORD001", RequestID: "req-1", UID: "u1", UserEmail: "u1@example.com",
		ServiceID: 101, ServiceName: "Test", Link: "https://x", Quantity: 1000,
		Charge: 50, Status: model.OrderStatusPending,
	}).Error; err != nil {
		t.Fatalf("写入订单失败: %v", err)
	}
	if err := db.Create(&model.FundRequest{
		RequestNo: "FND001", UID: "u2", UserEmail: "u2@example.com",
		Amount: 500, Currency: "BDT", Method: "bKash", TransactionID: "TX1",
		Status: model.FundStatusPending,
	}).Error; err != nil {
		t.Fatalf("写入充值申请失败: %v", err)
	}

	stats, err := svc.Overview(testCtx)
	if err != nil {
		t.Fatalf("总览统计失败: %v", err)
	}
	if stats.UserCount != 2 {
		t.Errorf("用户数期望 2, 得到 %d", stats.UserCount)
	}
	if stats.OrderCount != 1 || stats.OrderChargeTotal != 50 {
		t.Errorf("订单统计不符: count=%d, total=%.4f", stats.OrderCount, stats.OrderChargeTotal)
	}
	if stats.PendingFundCount != 1 || stats.PendingFundAmount != 500 {
		t.Errorf("充值统计不符: count=%d, amount=%.4f", stats.PendingFundCount, stats.PendingFundAmount)
	}
}
