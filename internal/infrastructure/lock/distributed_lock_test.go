package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDistributedLock_Mutex(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewOrderLock(client, "u1", "req-1", 30*time.Second)
	l2 := NewOrderLock(client, "u1", "req-2", 30*time.Second)

	ok, err := l1.TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("第一个锁应获取成功, ok=%v, err=%v", ok, err)
	}

	ok, err = l2.TryLock(ctx)
	if err != nil {
		t.Fatalf("TryLock 失败: %v", err)
	}
	if ok {
		t.Fatal("同一用户的第二把锁不应获取成功")
	}

	if err := l1.Unlock(ctx); err != nil {
		t.Fatalf("释放锁失败: %v", err)
	}

	ok, err = l2.TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("释放后应能获取, ok=%v, err=%v", ok, err)
	}
}

func TestDistributedLock_UnlockOnlyOwner(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewApprovalLock(client, "FND001", "admin1")
	l2 := NewApprovalLock(client, "FND001", "admin2")

	if ok, _ := l1.TryLock(ctx); !ok {
		t.Fatal("获取锁失败")
	}

	// 非持有者的 Unlock 不应删掉别人的锁
	if err := l2.Unlock(ctx); err != nil {
		t.Fatalf("Unlock 失败: %v", err)
	}
	if ok, _ := l2.TryLock(ctx); ok {
		t.Fatal("锁应仍被 admin1 持有")
	}
}

func TestDistributedLock_LockRetryExhausted(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewOrderLock(client, "u1", "req-1", 30*time.Second)
	l2 := NewOrderLock(client, "u1", "req-2", 30*time.Second)

	if ok, _ := l1.TryLock(ctx); !ok {
		t.Fatal("获取锁失败")
	}

	err := l2.Lock(ctx, time.Millisecond, 3)
	if !errors.Is(err, ErrLockFailed) {
		t.Fatalf("期望 ErrLockFailed, 得到: %v", err)
	}
}

func TestDistributedLock_DifferentUsersIndependent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l1 := NewOrderLock(client, "u1", "req-1", 30*time.Second)
	l2 := NewOrderLock(client, "u2", "req-2", 30*time.Second)

	if ok, _ := l1.TryLock(ctx); !ok {
		t.Fatal("u1 获取锁失败")
	}
	if ok, _ := l2.TryLock(ctx); !ok {
		t.Fatal("不同用户的锁不应互斥")
	}
}
