package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"smmpanel/internal/config"
	"smmpanel/internal/infrastructure/lock"
	"smmpanel/internal/model"
	"smmpanel/internal/repository"
	"smmpanel/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var ErrQuantityOutOfRange = errors.New("数量超出允许区间")

type OrderService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	orderRepo   *repository.OrderRepository
	userRepo    *repository.UserRepository
	catalogRepo *repository.CatalogRepository
	outboxRepo  *repository.OutboxRepository
	ledger      *LedgerService
}

func NewOrderService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *OrderService {
	return &OrderService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		orderRepo:   repository.NewOrderRepository(db),
		userRepo:    repository.NewUserRepository(db),
		catalogRepo: repository.NewCatalogRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		ledger:      NewLedgerService(db, cfg),
	}
}

type PlaceOrderRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID，客户端生成
	UID       string `json:"uid" binding:"required"`
	ServiceID int64  `json:"service_id" binding:"required"`
	Link      string `json:"link" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

type PlaceOrderResponse struct {
	OrderNo string  `json:"order_no"`
	Status  string  `json:"status"`
	Charge  float64 `json:"charge"`
	Balance float64 `json:"balance"`
	Message string  `json:"message,omitempty"`
}

// PlaceOrder 下单
//
// 【关键点】下单是面板最核心的资金操作，需要保证：
// 1. 幂等性：相同的 request_id 只会扣款一次
// 2. 余额守恒：扣款由台账的条件更新保证，并发下单绝不超扣
// 3. 扣款与订单落库是两步提交：订单落库失败时扣款已生效，
//    必须向调用方返回硬错误并发对账告警，绝不静默吞掉
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	// 幂等校验
	existingOrder, err := s.orderRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if existingOrder != nil {
		return &PlaceOrderResponse{
			OrderNo: existingOrder.OrderNo,
			Status:  existingOrder.Status,
			Charge:  existingOrder.Charge,
			Message: "订单已存在",
		}, nil
	}

	// 校验服务目录与数量区间，任何校验失败都不触碰存储
	offering, err := s.catalogRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !offering.QuantityInRange(req.Quantity) {
		return nil, fmt.Errorf("%w: 允许区间 [%d, %d]", ErrQuantityOutOfRange, offering.Min, offering.Max)
	}

	// 费用在此一次性算定，之后永不重算
	charge := offering.ChargeFor(req.Quantity)

	// 获取分布式锁，压制同一用户的重复提交
	orderLock := lock.NewOrderLock(s.redisClient, req.UID, req.RequestID, s.lockExpiration())
	err = orderLock.Lock(ctx, 100*time.Millisecond, 30)
	if err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer orderLock.Unlock(ctx)

	// 获取锁后再次检查幂等
	existingOrder, err = s.orderRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if existingOrder != nil {
		return &PlaceOrderResponse{
			OrderNo: existingOrder.OrderNo,
			Status:  existingOrder.Status,
			Charge:  existingOrder.Charge,
			Message: "订单已存在",
		}, nil
	}

	// 余额预检查只为快速失败；真正的守卫在台账的条件更新里
	user, err := s.userRepo.GetByUID(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if user.Balance < charge {
		return nil, repository.ErrBalanceNotEnough
	}

	orderNo := idgen.GenerateOrderNo()

	// 先扣款。预检查可能和并发扣款竞争，这里失败就整单失败，订单不落库
	newBalance, err := s.ledger.Debit(ctx, req.UID, charge, model.TransactionTypeOrderPayment, orderNo,
		fmt.Sprintf("下单-%s", offering.Name))
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderNo:     orderNo,
		RequestID:   req.RequestID,
		UID:         req.UID,
		UserEmail:   user.Email,
		ServiceID:   offering.ID,
		ServiceName: offering.Name,
		Link:        req.Link,
		Quantity:    req.Quantity,
		Charge:      charge,
		Status:      model.OrderStatusPending,
	}

	// 订单与下单事件同事务落库
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("创建订单失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"order_no":     orderNo,
			"uid":          req.UID,
			"service_id":   offering.ID,
			"service_name": offering.Name,
			"quantity":     req.Quantity,
			"charge":       charge,
			"status":       model.OrderStatusPending,
			"created_at":   time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: orderNo,
			Topic:      s.cfg.Kafka.Topic.OrderEvents,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		return s.outboxRepo.Create(ctx, tx, outboxMsg)
	})
	if err != nil {
		// 扣款已提交但订单没落上——孤儿扣款。发对账告警，向调用方暴露硬错误，
		// 这里绝不能自动退款：重试退款有重复入账的风险，交给人工对账
		s.emitReconcileAlert(ctx, orderNo, req.UID, charge, err)
		log.Printf("[OrderService] 订单落库失败，扣款待对账: orderNo=%s, uid=%s, charge=%.4f, err=%v",
			orderNo, req.UID, charge, err)
		return nil, fmt.Errorf("订单写入失败，扣款已登记流水 %s，待人工对账: %w", orderNo, err)
	}

	log.Printf("[OrderService] 下单成功: orderNo=%s, uid=%s, charge=%.4f", orderNo, req.UID, charge)

	return &PlaceOrderResponse{
		OrderNo: orderNo,
		Status:  model.OrderStatusPending,
		Charge:  charge,
		Balance: newBalance,
		Message: "下单成功",
	}, nil
}

// emitReconcileAlert 孤儿扣款告警，尽力而为；outbox 也写不进去时只能靠日志和对账任务
func (s *OrderService) emitReconcileAlert(ctx context.Context, orderNo, uid string, charge float64, cause error) {
	msgPayload := map[string]interface{}{
		"kind":     "orphan_debit",
		"order_no": orderNo,
		"uid":      uid,
		"charge":   charge,
		"cause":    cause.Error(),
		"at":       time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: orderNo,
		Topic:      s.cfg.Kafka.Topic.ReconcileAlert,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, nil, outboxMsg); err != nil {
		log.Printf("[OrderService] 对账告警写入失败: orderNo=%s, err=%v", orderNo, err)
	}
}

// ListServices 服务目录，供下单页展示
func (s *OrderService) ListServices(ctx context.Context) ([]*model.ServiceOffering, error) {
	return s.catalogRepo.List(ctx)
}

func (s *OrderService) GetOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	return s.orderRepo.GetByOrderNo(ctx, orderNo)
}

func (s *OrderService) ListUserOrders(ctx context.Context, uid string, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListByUID(ctx, uid, page, pageSize)
}

func (s *OrderService) ListAllOrders(ctx context.Context, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListAll(ctx, page, pageSize)
}

// UpdateOrderStatus 管理员变更订单状态
//
// 状态只是管理标签，变更不触碰台账——取消订单不退款
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderNo, toStatus string) error {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}

	return s.orderRepo.UpdateStatus(ctx, nil, orderNo, order.Status, toStatus)
}

func (s *OrderService) lockExpiration() time.Duration {
	if s.cfg != nil && s.cfg.Business.OrderLockSeconds > 0 {
		return time.Duration(s.cfg.Business.OrderLockSeconds) * time.Second
	}
	return 30 * time.Second
}
