package repository

import (
	"context"
	"errors"
	"time"

	"smmpanel/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.BalanceTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByReferenceNo(ctx context.Context, referenceNo string) (*model.BalanceTransaction, error) {
	var trans model.BalanceTransaction
	err := r.db.WithContext(ctx).Where("reference_no = ?", referenceNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.BalanceTransaction, int64, error) {
	var transactions []*model.BalanceTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.BalanceTransaction{}).Where("uid = ?", uid)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// ListOrderPaymentsBefore 对账任务用：取出 (afterTime, beforeTime] 区间内的下单扣款流水，
// afterTime 是调用方维护的扫描游标，取零值表示从头扫
func (r *TransactionRepository) ListOrderPaymentsBefore(ctx context.Context, afterTime, beforeTime time.Time, limit int) ([]*model.BalanceTransaction, error) {
	var transactions []*model.BalanceTransaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND created_at > ? AND created_at <= ?", model.TransactionTypeOrderPayment, afterTime, beforeTime).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}
