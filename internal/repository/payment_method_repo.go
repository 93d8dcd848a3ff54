package repository

import (
	"context"
	"errors"

	"smmpanel/internal/model"

	"gorm.io/gorm"
)

var ErrPaymentMethodNotFound = errors.New("收款方式不存在")

type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// SeedDefaults 首次访问时落默认收款方式，已有数据则不动
func (r *PaymentMethodRepository) SeedDefaults(ctx context.Context) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PaymentMethod{}).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&model.DefaultPaymentMethods).Error
}

func (r *PaymentMethodRepository) GetByKey(ctx context.Context, key string) (*model.PaymentMethod, error) {
	var method model.PaymentMethod
	err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &method, nil
}

func (r *PaymentMethodRepository) List(ctx context.Context, enabledOnly bool) ([]*model.PaymentMethod, error) {
	var methods []*model.PaymentMethod
	query := r.db.WithContext(ctx).Model(&model.PaymentMethod{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	err := query.Order("category ASC, id ASC").Find(&methods).Error
	return methods, err
}

// Update 管理端编辑收款信息
func (r *PaymentMethodRepository) Update(ctx context.Context, key string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentMethod{}).
		Where("`key` = ?", key).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPaymentMethodNotFound
	}

	return nil
}
