package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"smmpanel/internal/config"
	"smmpanel/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&model.User{},
		&model.LoginRecord{},
		&model.Order{},
		&model.FundRequest{},
		&model.BalanceTransaction{},
		&model.ServiceOffering{},
		&model.PaymentMethod{},
		&model.OutboxMessage{},
	)
	if err != nil {
		t.Fatalf("建表失败: %v", err)
	}

	return db
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				OrderEvents:    "order_events",
				FundEvents:     "fund_events",
				ReconcileAlert: "reconcile_alert",
			},
		},
		Business: config.BusinessConfig{
			DefaultCurrency:       "BDT",
			MaxRetryCount:         3,
			ReconcileGraceMinutes: 5,
			OrderLockSeconds:      30,
		},
	}
}

func seedUser(t *testing.T, db *gorm.DB, uid string, balance float64) *model.User {
	t.Helper()

	user := &model.User{
		UID:      uid,
		FullName: "Test User",
		Email:    uid + "@example.com",
		Balance:  balance,
		Role:     model.RoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("写入测试用户失败: %v", err)
	}
	return user
}

func seedOffering(t *testing.T, db *gorm.DB, id int64, rate float64, min, max int64) *model.ServiceOffering {
	t.Helper()

	offering := &model.ServiceOffering{
		ID:       id,
		Name:     "Test Service",
		Category: "Test",
		Rate:     rate,
		Min:      min,
		Max:      max,
	}
	if err := db.Create(offering).Error; err != nil {
		t.Fatalf("写入测试服务失败: %v", err)
	}
	return offering
}

func seedPaymentMethod(t *testing.T, db *gorm.DB, key string, enabled bool) *model.PaymentMethod {
	t.Helper()

	method := &model.PaymentMethod{
		Key:         key,
		Name:        "bKash",
		Account:     "01700000000",
		AccountName: "Test Account",
		Type:        "Personal",
		Category:    model.PaymentCategoryLocal,
		Enabled:     enabled,
	}
	if err := db.Create(method).Error; err != nil {
		t.Fatalf("写入收款方式失败: %v", err)
	}
	return method
}

func userBalance(t *testing.T, db *gorm.DB, uid string) float64 {
	t.Helper()

	var user model.User
	if err := db.Where("uid = ?", uid).First(&user).Error; err != nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	return user.Balance
}

func journalCount(t *testing.T, db *gorm.DB, uid string) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&model.BalanceTransaction{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
		t.Fatalf("统计流水失败: %v", err)
	}
	return count
}

func lastJournal(t *testing.T, db *gorm.DB, uid string) *model.BalanceTransaction {
	t.Helper()

	var trans model.BalanceTransaction
	if err := db.Where("uid = ?", uid).Order("id DESC").First(&trans).Error; err != nil {
		t.Fatalf("查询流水失败: %v", err)
	}
	return &trans
}

var testCtx = context.Background()
