package service

import (
	"context"
	"strings"

	"smmpanel/internal/config"
	"smmpanel/internal/model"
	"smmpanel/internal/repository"
	"smmpanel/pkg/idgen"

	"gorm.io/gorm"
)

type UserService struct {
	db              *gorm.DB
	cfg             *config.Config
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{
		db:              db,
		cfg:             cfg,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

type RegisterRequest struct {
	UID         string `json:"uid"` // 认证方分配的ID，缺省时本地生成
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	ReferrerUID string `json:"referrer_uid"` // 推荐链接里的 ?ref= 值，可为空
}

// Register 注册用户，初始余额恒为 0，余额之后只能经台账变动
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, ErrMissingField
	}

	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		uid = idgen.GenerateUID()
	}

	user := &model.User{
		UID:         uid,
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		Balance:     0,
		Role:        model.RoleUser,
		ReferrerUID: strings.TrimSpace(req.ReferrerUID),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	return s.userRepo.GetByUID(ctx, uid)
}

// RecordLogin 登录记录只追加，供管理端审计页展示
func (s *UserService) RecordLogin(ctx context.Context, uid string) (*model.User, error) {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	record := &model.LoginRecord{
		UID:   user.UID,
		Email: user.Email,
	}
	if err := s.userRepo.CreateLoginRecord(ctx, record); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) ListTransactions(ctx context.Context, uid string, page, pageSize int) ([]*model.BalanceTransaction, int64, error) {
	return s.transactionRepo.ListByUID(ctx, uid, page, pageSize)
}
