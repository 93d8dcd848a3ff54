package service

import (
	"errors"
	"strings"
	"testing"

	"smmpanel/internal/model"
	"smmpanel/internal/repository"
)

func TestUserService_Register(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testConfig())

	user, err := svc.Register(testCtx, &RegisterRequest{
		UID:      "ext-123",
		FullName: "  Alice  ",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	if user.UID != "ext-123" {
		t.Errorf("外部UID应被沿用, 得到 %s", user.UID)
	}
	if user.FullName != "Alice" {
		t.Errorf("姓名应去除空白, 得到 %q", user.FullName)
	}
	if user.Balance != 0 {
		t.Errorf("初始余额必须为 0, 得到 %.4f", user.Balance)
	}
	if user.Role != model.RoleUser {
		t.Errorf("默认角色期望 user, 得到 %s", user.Role)
	}
}

func TestUserService_RegisterGeneratedUID(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testConfig())

	user, err := svc.Register(testCtx, &RegisterRequest{
		FullName: "Bob",
		Email:    "bob@example.com",
	})
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if !strings.HasPrefix(user.UID, "u") || len(user.UID) < 2 {
		t.Errorf("缺省UID应本地生成, 得到 %q", user.UID)
	}
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testConfig())

	req := &RegisterRequest{UID: "u1", FullName: "Alice", Email: "alice@example.com"}
	if _, err := svc.Register(testCtx, req); err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if _, err := svc.Register(testCtx, req); !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("期望 ErrUserExists, 得到: %v", err)
	}
}

func TestUserService_RecordLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testConfig())

	seedUser(t, db, "u1", 0)

	user, err := svc.RecordLogin(testCtx, "u1")
	if err != nil {
		t.Fatalf("登录记录失败: %v", err)
	}
	if user.UID != "u1" {
		t.Errorf("返回用户不符: %+v", user)
	}

	var count int64
	db.Model(&model.LoginRecord{}).Where("uid = ?", "u1").Count(&count)
	if count != 1 {
		t.Errorf("登录记录期望 1 条, 得到 %d", count)
	}

	if _, err := svc.RecordLogin(testCtx, "nope"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("期望 ErrUserNotFound, 得到: %v", err)
	}
}
