package repository

import (
	"context"
	"errors"

	"smmpanel/internal/model"

	"gorm.io/gorm"
)

var ErrServiceNotFound = errors.New("服务不存在")

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// SeedDefaults 目录为空时写入种子数据，已有数据则不动
func (r *CatalogRepository) SeedDefaults(ctx context.Context) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ServiceOffering{}).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&model.DefaultServiceOfferings).Error
}

func (r *CatalogRepository) GetByID(ctx context.Context, serviceID int64) (*model.ServiceOffering, error) {
	var offering model.ServiceOffering
	err := r.db.WithContext(ctx).Where("id = ?", serviceID).First(&offering).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &offering, nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*model.ServiceOffering, error) {
	var offerings []*model.ServiceOffering
	err := r.db.WithContext(ctx).
		Order("category ASC, id ASC").
		Find(&offerings).Error
	return offerings, err
}
