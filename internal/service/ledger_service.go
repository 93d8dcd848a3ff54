package service

import (
	"context"
	"errors"
	"fmt"

	"smmpanel/internal/config"
	"smmpanel/internal/model"
	"smmpanel/internal/repository"
	"smmpanel/pkg/idgen"

	"gorm.io/gorm"
)

// ============================================================================
// 余额台账
// ============================================================================
//
// 余额字段唯一的合法修改入口。所有变动走同一条路径：
//
//   读取当前余额快照 -> 条件更新（balance 守卫 + version 守卫）-> 落流水
//
// 条件更新与流水写入在同一个数据库事务内提交，失败即整体回滚，
// 不存在"扣了钱没流水"或"有流水没扣钱"的中间态。
// 版本冲突（并发写者抢先提交）时换新快照重试，重试次数有上限；
// 余额不足不重试——盲目重试不会让钱变多
//
// ============================================================================

const (
	DirectionAdd    = "add"
	DirectionDeduct = "deduct"
)

var (
	ErrInvalidAmount    = errors.New("金额必须大于0")
	ErrInvalidDirection = errors.New("调整方向不合法")
)

const defaultMaxRetry = 3

type LedgerService struct {
	db              *gorm.DB
	cfg             *config.Config
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
}

func NewLedgerService(db *gorm.DB, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:              db,
		cfg:             cfg,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Debit 扣款，返回扣款后余额
//
// 余额不足或用户不存在时整体失败，无任何部分效果
func (s *LedgerService) Debit(ctx context.Context, uid string, amount float64, txType, referenceNo, remark string) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	maxRetry := s.maxRetry()
	for i := 0; i < maxRetry; i++ {
		user, err := s.userRepo.GetByUID(ctx, uid)
		if err != nil {
			return 0, err
		}

		// 快照上的余额检查只是提前失败；最终裁决在条件更新里
		if user.Balance < amount {
			return 0, repository.ErrBalanceNotEnough
		}

		newBalance := user.Balance - amount
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.userRepo.Deduct(ctx, tx, uid, amount, user.Version); err != nil {
				return err
			}
			return s.transactionRepo.Create(ctx, tx, &model.BalanceTransaction{
				TransactionNo: idgen.GenerateTransactionNo(),
				UID:           uid,
				ReferenceNo:   referenceNo,
				Amount:        -amount,
				Type:          txType,
				BalanceBefore: user.Balance,
				BalanceAfter:  newBalance,
				Remark:        remark,
			})
		})
		if err == nil {
			return newBalance, nil
		}
		if errors.Is(err, repository.ErrOptimisticLock) {
			// 有并发写者抢先提交，换新快照重试
			continue
		}
		return 0, err
	}

	return 0, fmt.Errorf("扣款失败: %w", repository.ErrOptimisticLock)
}

// Credit 入账，返回入账后余额
//
// 只在用户不存在时失败
func (s *LedgerService) Credit(ctx context.Context, uid string, amount float64, txType, referenceNo, remark string) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	maxRetry := s.maxRetry()
	for i := 0; i < maxRetry; i++ {
		user, err := s.userRepo.GetByUID(ctx, uid)
		if err != nil {
			return 0, err
		}

		newBalance := user.Balance + amount
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.userRepo.Increase(ctx, tx, uid, amount, user.Version); err != nil {
				return err
			}
			return s.transactionRepo.Create(ctx, tx, &model.BalanceTransaction{
				TransactionNo: idgen.GenerateTransactionNo(),
				UID:           uid,
				ReferenceNo:   referenceNo,
				Amount:        amount,
				Type:          txType,
				BalanceBefore: user.Balance,
				BalanceAfter:  newBalance,
				Remark:        remark,
			})
		})
		if err == nil {
			return newBalance, nil
		}
		if errors.Is(err, repository.ErrOptimisticLock) {
			continue
		}
		return 0, err
	}

	return 0, fmt.Errorf("入账失败: %w", repository.ErrOptimisticLock)
}

// CreditInTx 在调用方事务内入账并落流水
//
// 充值审批需要"状态CAS + 入账"同事务提交，由调用方把事务句柄和
// 事务外预读的用户快照传进来；版本守卫失败返回冲突，
// 由调用方整体回滚重试（状态CAS必须跟着一起回滚）
func (s *LedgerService) CreditInTx(ctx context.Context, tx *gorm.DB, user *model.User, amount float64, txType, referenceNo, remark string) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	newBalance := user.Balance + amount
	if err := s.userRepo.Increase(ctx, tx, user.UID, amount, user.Version); err != nil {
		return 0, err
	}
	err := s.transactionRepo.Create(ctx, tx, &model.BalanceTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UID:           user.UID,
		ReferenceNo:   referenceNo,
		Amount:        amount,
		Type:          txType,
		BalanceBefore: user.Balance,
		BalanceAfter:  newBalance,
		Remark:        remark,
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Adjust 管理员手工调整，加减共用扣款/入账的失败语义
func (s *LedgerService) Adjust(ctx context.Context, uid string, amount float64, direction, referenceNo, remark string) (float64, error) {
	switch direction {
	case DirectionAdd:
		return s.Credit(ctx, uid, amount, model.TransactionTypeAdminAdjust, referenceNo, remark)
	case DirectionDeduct:
		return s.Debit(ctx, uid, amount, model.TransactionTypeAdminAdjust, referenceNo, remark)
	default:
		return 0, ErrInvalidDirection
	}
}

// GetBalance 当前余额，仅用于展示或提前失败检查
func (s *LedgerService) GetBalance(ctx context.Context, uid string) (float64, error) {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

func (s *LedgerService) maxRetry() int {
	if s.cfg != nil && s.cfg.Business.MaxRetryCount > 0 {
		return s.cfg.Business.MaxRetryCount
	}
	return defaultMaxRetry
}
