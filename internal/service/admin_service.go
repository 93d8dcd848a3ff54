package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"smmpanel/internal/config"
	"smmpanel/internal/model"
	"smmpanel/internal/repository"
	"smmpanel/pkg/idgen"

	"gorm.io/gorm"
)

var ErrNotAdmin = errors.New("需要管理员权限")

type AdminService struct {
	db         *gorm.DB
	cfg        *config.Config
	userRepo   *repository.UserRepository
	orderRepo  *repository.OrderRepository
	fundRepo   *repository.FundRequestRepository
	outboxRepo *repository.OutboxRepository
	ledger     *LedgerService
}

func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:         db,
		cfg:        cfg,
		userRepo:   repository.NewUserRepository(db),
		orderRepo:  repository.NewOrderRepository(db),
		fundRepo:   repository.NewFundRequestRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		ledger:     NewLedgerService(db, cfg),
	}
}

type AdjustBalanceResponse struct {
	AdjustNo string  `json:"adjust_no"`
	UID      string  `json:"uid"`
	Amount   float64 `json:"amount"`
	Balance  float64 `json:"balance"`
}

// AdjustBalance 管理员手工调整余额
//
// isAdmin 是上游访问控制交下来的能力标记，路由中间件已经验过角色，
// 这里再验一次，防止工作流被绕过中间件直接调用。
// 扣减方向共享台账的余额不足保护，不足时无任何变动
func (s *AdminService) AdjustBalance(ctx context.Context, isAdmin bool, uid string, amount float64, direction, remark string) (*AdjustBalanceResponse, error) {
	if !isAdmin {
		return nil, ErrNotAdmin
	}

	adjustNo := idgen.GenerateAdjustNo()
	if remark == "" {
		remark = fmt.Sprintf("手工调整-%s", direction)
	}

	newBalance, err := s.ledger.Adjust(ctx, uid, amount, direction, adjustNo, remark)
	if err != nil {
		return nil, err
	}

	s.enqueueAdjustEvent(ctx, adjustNo, uid, amount, direction, newBalance)

	log.Printf("[AdminService] 余额已调整: adjustNo=%s, uid=%s, direction=%s, amount=%.4f, balance=%.4f",
		adjustNo, uid, direction, amount, newBalance)

	return &AdjustBalanceResponse{
		AdjustNo: adjustNo,
		UID:      uid,
		Amount:   amount,
		Balance:  newBalance,
	}, nil
}

func (s *AdminService) enqueueAdjustEvent(ctx context.Context, adjustNo, uid string, amount float64, direction string, balance float64) {
	msgPayload := map[string]interface{}{
		"adjust_no": adjustNo,
		"uid":       uid,
		"amount":    amount,
		"direction": direction,
		"balance":   balance,
		"at":        time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: adjustNo,
		Topic:      s.cfg.Kafka.Topic.FundEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, nil, outboxMsg); err != nil {
		log.Printf("[AdminService] 调整事件写入失败: adjustNo=%s, err=%v", adjustNo, err)
	}
}

func (s *AdminService) ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	return s.userRepo.List(ctx, page, pageSize)
}

func (s *AdminService) ListLoginRecords(ctx context.Context, page, pageSize int) ([]*model.LoginRecord, int64, error) {
	return s.userRepo.ListLoginRecords(ctx, page, pageSize)
}

type OverviewStats struct {
	UserCount         int64   `json:"user_count"`
	OrderCount        int64   `json:"order_count"`
	OrderChargeTotal  float64 `json:"order_charge_total"`
	PendingFundCount  int64   `json:"pending_fund_count"`
	PendingFundAmount float64 `json:"pending_fund_amount"`
}

// Overview 管理端总览聚合
func (s *AdminService) Overview(ctx context.Context) (*OverviewStats, error) {
	userCount, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	orderCount, chargeTotal, err := s.orderRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	pendingCount, pendingAmount, err := s.fundRepo.PendingStats(ctx)
	if err != nil {
		return nil, err
	}

	return &OverviewStats{
		UserCount:         userCount,
		OrderCount:        orderCount,
		OrderChargeTotal:  chargeTotal,
		PendingFundCount:  pendingCount,
		PendingFundAmount: pendingAmount,
	}, nil
}
