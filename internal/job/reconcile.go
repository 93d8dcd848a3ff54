package job

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"smmpanel/internal/config"
	"smmpanel/internal/model"
	"smmpanel/internal/repository"

	"gorm.io/gorm"
)

// ReconcileJob 孤儿扣款对账任务
//
// 下单的扣款和订单落库是两步提交，订单落库失败时会留下一条
// 没有对应订单的 ORDER_PAYMENT 流水。本任务周期性扫描超过宽限期的
// 扣款流水，逐条核对订单是否存在，缺失的发对账告警。
// 只告警不退款：自动退款有重复入账风险，处置交给人工
type ReconcileJob struct {
	db              *gorm.DB
	transactionRepo *repository.TransactionRepository
	orderRepo       *repository.OrderRepository
	outboxRepo      *repository.OutboxRepository
	cfg             *config.Config
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int

	// 流水只追加不回改，核对过的区间不会再变，用游标避免全表重扫
	cursor  time.Time
	alerted map[string]struct{}
}

func NewReconcileJob(db *gorm.DB, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
		orderRepo:       repository.NewOrderRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		cfg:             cfg,
		stopCh:          make(chan struct{}),
		interval:        30 * time.Second,
		batchSize:       50,
		alerted:         map[string]struct{}{},
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	log.Println("[ReconcileJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.reconcileOrphanDebits(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *ReconcileJob) graceWindow() time.Duration {
	minutes := 5
	if j.cfg != nil && j.cfg.Business.ReconcileGraceMinutes > 0 {
		minutes = j.cfg.Business.ReconcileGraceMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (j *ReconcileJob) reconcileOrphanDebits(ctx context.Context) {
	beforeTime := time.Now().Add(-j.graceWindow())
	transactions, err := j.transactionRepo.ListOrderPaymentsBefore(ctx, j.cursor, beforeTime, j.batchSize)
	if err != nil {
		log.Printf("[ReconcileJob] 查询扣款流水失败: %v", err)
		return
	}

	if len(transactions) == 0 {
		return
	}

	orphanCount := 0
	for _, trans := range transactions {
		if trans.CreatedAt.After(j.cursor) {
			j.cursor = trans.CreatedAt
		}

		exists, err := j.orderRepo.ExistsByOrderNo(ctx, trans.ReferenceNo)
		if err != nil {
			log.Printf("[ReconcileJob] 核对订单失败: orderNo=%s, err=%v", trans.ReferenceNo, err)
			continue
		}
		if exists {
			continue
		}

		if _, done := j.alerted[trans.ReferenceNo]; done {
			continue
		}

		orphanCount++
		log.Printf("[ReconcileJob] 发现孤儿扣款: orderNo=%s, uid=%s, amount=%.4f, transactionNo=%s",
			trans.ReferenceNo, trans.UID, trans.Amount, trans.TransactionNo)

		if err := j.emitAlert(ctx, trans); err != nil {
			log.Printf("[ReconcileJob] 对账告警写入失败: orderNo=%s, err=%v", trans.ReferenceNo, err)
			continue
		}
		j.alerted[trans.ReferenceNo] = struct{}{}
	}

	if orphanCount > 0 {
		log.Printf("[ReconcileJob] 本轮发现 %d 笔孤儿扣款，已发告警", orphanCount)
	}
}

func (j *ReconcileJob) emitAlert(ctx context.Context, trans *model.BalanceTransaction) error {
	msgPayload := map[string]interface{}{
		"kind":           "orphan_debit",
		"order_no":       trans.ReferenceNo,
		"transaction_no": trans.TransactionNo,
		"uid":            trans.UID,
		"charge":         -trans.Amount,
		"debited_at":     trans.CreatedAt.Format(time.RFC3339),
		"detected_at":    time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: trans.ReferenceNo,
		Topic:      j.cfg.Kafka.Topic.ReconcileAlert,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	return j.outboxRepo.Create(ctx, nil, outboxMsg)
}
