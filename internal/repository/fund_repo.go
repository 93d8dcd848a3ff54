package repository

import (
	"context"
	"errors"
	"time"

	"smmpanel/internal/model"

	"gorm.io/gorm"
)

var (
	ErrFundRequestNotFound = errors.New("充值申请不存在")
	ErrFundRequestResolved = errors.New("充值申请已处理，请勿重复操作")
)

type FundRequestRepository struct {
	db *gorm.DB
}

func NewFundRequestRepository(db *gorm.DB) *FundRequestRepository {
	return &FundRequestRepository{db: db}
}

func (r *FundRequestRepository) Create(ctx context.Context, request *model.FundRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *FundRequestRepository) GetByRequestNo(ctx context.Context, requestNo string) (*model.FundRequest, error) {
	var request model.FundRequest
	err := r.db.WithContext(ctx).Where("request_no = ?", requestNo).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ResolveIfPending 条件状态迁移 Pending -> Completed/Cancelled
//
// 【关键点】WHERE status = 'Pending' 的条件更新就是状态字段上的 CAS：
// 两个管理员并发处理同一笔申请时，只有一个 UPDATE 能命中行，
// 另一个 RowsAffected == 0，返回已处理错误，绝不二次入账
func (r *FundRequestRepository) ResolveIfPending(ctx context.Context, tx *gorm.DB, requestNo string, toStatus string) error {
	if tx == nil {
		tx = r.db
	}

	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.FundRequest{}).
		Where("request_no = ? AND status = ?", requestNo, model.FundStatusPending).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"resolved_at": &now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		_, err := r.GetByRequestNo(ctx, requestNo)
		if err != nil {
			return err
		}
		return ErrFundRequestResolved
	}

	return nil
}

func (r *FundRequestRepository) ListPending(ctx context.Context, limit int) ([]*model.FundRequest, error) {
	var requests []*model.FundRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", model.FundStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&requests).Error
	return requests, err
}

func (r *FundRequestRepository) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.FundRequest, int64, error) {
	var requests []*model.FundRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.FundRequest{}).Where("uid = ?", uid)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}

// PendingStats 待处理申请的数量与金额合计，供管理端总览使用
func (r *FundRequestRepository) PendingStats(ctx context.Context) (int64, float64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FundRequest{}).
		Where("status = ?", model.FundStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, 0, err
	}

	var sum struct {
		Total float64
	}
	err = r.db.WithContext(ctx).
		Model(&model.FundRequest{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", model.FundStatusPending).
		Scan(&sum).Error
	if err != nil {
		return 0, 0, err
	}

	return count, sum.Total, nil
}
