package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"smmpanel/internal/config"
	"smmpanel/internal/infrastructure/lock"
	"smmpanel/internal/model"
	"smmpanel/internal/repository"
	"smmpanel/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	ErrMissingField         = errors.New("必填字段不能为空")
	ErrPaymentMethodInvalid = errors.New("收款方式不可用")
)

type FundService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	fundRepo    *repository.FundRequestRepository
	userRepo    *repository.UserRepository
	methodRepo  *repository.PaymentMethodRepository
	outboxRepo  *repository.OutboxRepository
	ledger      *LedgerService
}

func NewFundService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *FundService {
	return &FundService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		fundRepo:    repository.NewFundRequestRepository(db),
		userRepo:    repository.NewUserRepository(db),
		methodRepo:  repository.NewPaymentMethodRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		ledger:      NewLedgerService(db, cfg),
	}
}

type SubmitFundRequest struct {
	UID           string  `json:"uid" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency"`
	MethodKey     string  `json:"method_key" binding:"required"`
	TransactionID string  `json:"transaction_id" binding:"required"`
}

// Submit 提交充值申请
//
// 真正的资金在系统外流转（bKash/Nagad/链上转账），这里只登记用户自报的
// 打款凭据等管理员人工核实，提交阶段绝不触碰台账
func (s *FundService) Submit(ctx context.Context, req *SubmitFundRequest) (*model.FundRequest, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(req.TransactionID) == "" || strings.TrimSpace(req.MethodKey) == "" {
		return nil, ErrMissingField
	}

	method, err := s.methodRepo.GetByKey(ctx, req.MethodKey)
	if err != nil {
		return nil, err
	}
	if !method.Enabled {
		return nil, ErrPaymentMethodInvalid
	}

	user, err := s.userRepo.GetByUID(ctx, req.UID)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency()
	}

	request := &model.FundRequest{
		RequestNo:     idgen.GenerateFundRequestNo(),
		UID:           user.UID,
		UserEmail:     user.Email,
		Amount:        req.Amount,
		Currency:      currency,
		Method:        method.Name,
		TransactionID: strings.TrimSpace(req.TransactionID),
		Status:        model.FundStatusPending,
	}

	if err := s.fundRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("创建充值申请失败: %w", err)
	}

	log.Printf("[FundService] 充值申请已提交: requestNo=%s, uid=%s, amount=%.4f, method=%s",
		request.RequestNo, user.UID, req.Amount, method.Name)

	return request, nil
}

type ResolveFundResponse struct {
	RequestNo string  `json:"request_no"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Balance   float64 `json:"balance,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Approve 管理员通过充值申请
//
// 【关键点】入账最多发生一次：
// 状态迁移 Pending -> Completed 是行上的条件更新（CAS），
// 和入账、流水在同一个数据库事务内提交。两个管理员并发通过同一笔时，
// 只有一个事务的 CAS 能命中，另一个拿到"已处理"错误，资金只动一次。
// 分布式锁只是把并发审批排队，正确性不依赖它
func (s *FundService) Approve(ctx context.Context, requestNo, operator string) (*ResolveFundResponse, error) {
	request, err := s.fundRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return nil, err
	}
	if request.Status != model.FundStatusPending {
		return nil, repository.ErrFundRequestResolved
	}

	approvalLock := lock.NewApprovalLock(s.redisClient, requestNo, operator)
	err = approvalLock.Lock(ctx, 100*time.Millisecond, 30)
	if err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer approvalLock.Unlock(ctx)

	// 获取锁后重新读，拦掉排队期间已被处理的申请
	request, err = s.fundRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return nil, err
	}
	if request.Status != model.FundStatusPending {
		return nil, repository.ErrFundRequestResolved
	}

	var newBalance float64
	maxRetry := s.maxRetry()
	for i := 0; i < maxRetry; i++ {
		// 事务外预读用户快照，版本守卫在事务内裁决
		user, err := s.userRepo.GetByUID(ctx, request.UID)
		if err != nil {
			return nil, err
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.fundRepo.ResolveIfPending(ctx, tx, requestNo, model.FundStatusCompleted); err != nil {
				return err
			}

			balance, err := s.ledger.CreditInTx(ctx, tx, user, request.Amount, model.TransactionTypeFundCredit,
				request.RequestNo, fmt.Sprintf("充值-%s-%s", request.Method, request.TransactionID))
			if err != nil {
				return err
			}
			newBalance = balance

			return s.enqueueFundEvent(ctx, tx, request, model.FundStatusCompleted)
		})
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrOptimisticLock) {
			// 余额版本被并发写者推进，整个事务回滚后换新快照重试
			if i == maxRetry-1 {
				return nil, fmt.Errorf("入账失败: %w", err)
			}
			continue
		}
		return nil, err
	}

	log.Printf("[FundService] 充值已入账: requestNo=%s, uid=%s, amount=%.4f, operator=%s",
		requestNo, request.UID, request.Amount, operator)

	return &ResolveFundResponse{
		RequestNo: requestNo,
		Status:    model.FundStatusCompleted,
		Amount:    request.Amount,
		Balance:   newBalance,
		Message:   "充值已入账",
	}, nil
}

// Reject 管理员驳回充值申请，只做状态 CAS，不触碰台账
func (s *FundService) Reject(ctx context.Context, requestNo, operator string) (*ResolveFundResponse, error) {
	request, err := s.fundRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.fundRepo.ResolveIfPending(ctx, tx, requestNo, model.FundStatusCancelled); err != nil {
			return err
		}
		return s.enqueueFundEvent(ctx, tx, request, model.FundStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[FundService] 充值申请已驳回: requestNo=%s, operator=%s", requestNo, operator)

	return &ResolveFundResponse{
		RequestNo: requestNo,
		Status:    model.FundStatusCancelled,
		Amount:    request.Amount,
		Message:   "申请已驳回",
	}, nil
}

func (s *FundService) enqueueFundEvent(ctx context.Context, tx *gorm.DB, request *model.FundRequest, status string) error {
	msgPayload := map[string]interface{}{
		"request_no":     request.RequestNo,
		"uid":            request.UID,
		"amount":         request.Amount,
		"currency":       request.Currency,
		"method":         request.Method,
		"transaction_id": request.TransactionID,
		"status":         status,
		"resolved_at":    time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: request.RequestNo,
		Topic:      s.cfg.Kafka.Topic.FundEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	return s.outboxRepo.Create(ctx, tx, outboxMsg)
}

func (s *FundService) ListPending(ctx context.Context, limit int) ([]*model.FundRequest, error) {
	return s.fundRepo.ListPending(ctx, limit)
}

func (s *FundService) ListUserRequests(ctx context.Context, uid string, page, pageSize int) ([]*model.FundRequest, int64, error) {
	return s.fundRepo.ListByUID(ctx, uid, page, pageSize)
}

func (s *FundService) ListPaymentMethods(ctx context.Context, enabledOnly bool) ([]*model.PaymentMethod, error) {
	return s.methodRepo.List(ctx, enabledOnly)
}

func (s *FundService) UpdatePaymentMethod(ctx context.Context, key string, updates map[string]interface{}) error {
	return s.methodRepo.Update(ctx, key, updates)
}

func (s *FundService) defaultCurrency() string {
	if s.cfg != nil && s.cfg.Business.DefaultCurrency != "" {
		return s.cfg.Business.DefaultCurrency
	}
	return "BDT"
}

func (s *FundService) maxRetry() int {
	if s.cfg != nil && s.cfg.Business.MaxRetryCount > 0 {
		return s.cfg.Business.MaxRetryCount
	}
	return defaultMaxRetry
}
