package repository

import (
	"context"
	"errors"
	"testing"

	"smmpanel/internal/model"
)

func newTestOrder(t *testing.T, repo *OrderRepository, orderNo, requestID string) {
	t.Helper()
	order := &model.Order{
		OrderNo:     orderNo,
		RequestID:   requestID,
		UID:         "u1",
		UserEmail:   "alice@example.com",
		ServiceID:   101,
		ServiceName: "TikTok Followers [Real]",
		Link:        "https://tiktok.com/@alice",
		Quantity:    1000,
		Charge:      120,
		Status:      model.OrderStatusPending,
	}
	if err := repo.Create(context.Background(), nil, order); err != nil {
		t.Fatalf("创建订单失败: %v", err)
	}
}

func TestOrderRepository_GetByRequestID(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	newTestOrder(t, repo, "ORD001", "req-1")

	got, err := repo.GetByRequestID(ctx, "req-1")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got == nil || got.OrderNo != "ORD001" {
		t.Fatalf("期望命中 ORD001, 得到: %+v", got)
	}

	// 未命中返回 nil 而不是错误，调用方据此判断幂等
	got, err = repo.GetByRequestID(ctx, "req-404")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if got != nil {
		t.Fatalf("未命中应返回 nil, 得到: %+v", got)
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	newTestOrder(t, repo, "ORD001", "req-1")

	if err := repo.UpdateStatus(ctx, nil, "ORD001", model.OrderStatusPending, model.OrderStatusInProgress); err != nil {
		t.Fatalf("状态迁移失败: %v", err)
	}

	got, _ := repo.GetByOrderNo(ctx, "ORD001")
	if got.Status != model.OrderStatusInProgress {
		t.Errorf("状态期望 In Progress, 得到 %s", got.Status)
	}

	// 终态不允许再迁移
	if err := repo.UpdateStatus(ctx, nil, "ORD001", model.OrderStatusInProgress, model.OrderStatusCompleted); err != nil {
		t.Fatalf("状态迁移失败: %v", err)
	}
	err := repo.UpdateStatus(ctx, nil, "ORD001", model.OrderStatusCompleted, model.OrderStatusCancelled)
	if !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("期望 ErrOrderStatusInvalid, 得到: %v", err)
	}
}

// from 与库里实际状态不一致时，条件更新不命中，迁移失败
func TestOrderRepository_UpdateStatusStaleFrom(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	newTestOrder(t, repo, "ORD001", "req-1")

	if err := repo.UpdateStatus(ctx, nil, "ORD001", model.OrderStatusPending, model.OrderStatusCancelled); err != nil {
		t.Fatalf("状态迁移失败: %v", err)
	}

	err := repo.UpdateStatus(ctx, nil, "ORD001", model.OrderStatusPending, model.OrderStatusInProgress)
	if !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("期望 ErrOrderStatusInvalid, 得到: %v", err)
	}
}

func TestOrderRepository_ExistsByOrderNo(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	newTestOrder(t, repo, "ORD001", "req-1")

	exists, err := repo.ExistsByOrderNo(ctx, "ORD001")
	if err != nil || !exists {
		t.Fatalf("期望存在, exists=%v, err=%v", exists, err)
	}

	exists, err = repo.ExistsByOrderNo(ctx, "ORD404")
	if err != nil || exists {
		t.Fatalf("期望不存在, exists=%v, err=%v", exists, err)
	}
}
