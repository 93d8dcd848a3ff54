package repository

import (
	"context"
	"errors"
	"testing"

	"smmpanel/internal/model"
)

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{UID: "u1", FullName: "Alice", Email: "alice@example.com", Role: model.RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	dup := &model.User{UID: "u1", FullName: "Alice2", Email: "alice2@example.com", Role: model.RoleUser}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrUserExists) {
		t.Fatalf("期望 ErrUserExists, 得到: %v", err)
	}
}

func TestUserRepository_GetByUIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	if _, err := repo.GetByUID(context.Background(), "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("期望 ErrUserNotFound, 得到: %v", err)
	}
}

func TestUserRepository_Deduct(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{UID: "u1", FullName: "Alice", Email: "alice@example.com", Balance: 100, Version: 0}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if err := repo.Deduct(ctx, nil, "u1", 30, 0); err != nil {
		t.Fatalf("扣款失败: %v", err)
	}

	got, err := repo.GetByUID(ctx, "u1")
	if err != nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if got.Balance != 70 {
		t.Errorf("余额期望 70, 得到 %.4f", got.Balance)
	}
	if got.Version != 1 {
		t.Errorf("版本期望 1, 得到 %d", got.Version)
	}
}

// 两个写者基于同一旧快照扣款，后提交者必须拿到乐观锁冲突而不是覆盖写
func TestUserRepository_DeductStaleVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{UID: "u1", FullName: "Alice", Email: "alice@example.com", Balance: 100, Version: 0}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if err := repo.Deduct(ctx, nil, "u1", 30, 0); err != nil {
		t.Fatalf("第一笔扣款失败: %v", err)
	}

	// 余额还够，但版本已过期
	if err := repo.Deduct(ctx, nil, "u1", 30, 0); !errors.Is(err, ErrOptimisticLock) {
		t.Fatalf("期望 ErrOptimisticLock, 得到: %v", err)
	}

	got, _ := repo.GetByUID(ctx, "u1")
	if got.Balance != 70 {
		t.Errorf("冲突扣款不应生效, 余额期望 70, 得到 %.4f", got.Balance)
	}
}

func TestUserRepository_DeductInsufficient(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{UID: "u1", FullName: "Alice", Email: "alice@example.com", Balance: 20, Version: 0}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if err := repo.Deduct(ctx, nil, "u1", 50, 0); !errors.Is(err, ErrBalanceNotEnough) {
		t.Fatalf("期望 ErrBalanceNotEnough, 得到: %v", err)
	}

	got, _ := repo.GetByUID(ctx, "u1")
	if got.Balance != 20 {
		t.Errorf("余额不足时不应有任何变动, 余额期望 20, 得到 %.4f", got.Balance)
	}
	if got.Version != 0 {
		t.Errorf("余额不足时版本不应推进, 期望 0, 得到 %d", got.Version)
	}
}

func TestUserRepository_IncreaseStaleVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{UID: "u1", FullName: "Alice", Email: "alice@example.com", Balance: 0, Version: 0}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	if err := repo.Increase(ctx, nil, "u1", 10, 0); err != nil {
		t.Fatalf("入账失败: %v", err)
	}
	if err := repo.Increase(ctx, nil, "u1", 10, 0); !errors.Is(err, ErrOptimisticLock) {
		t.Fatalf("期望 ErrOptimisticLock, 得到: %v", err)
	}

	got, _ := repo.GetByUID(ctx, "u1")
	if got.Balance != 10 {
		t.Errorf("余额期望 10, 得到 %.4f", got.Balance)
	}
}
