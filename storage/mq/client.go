package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"CareCircle/config"
)

// 交换机与队列拓扑
// scheduler.delayed 依赖 rabbitmq-delayed-message-exchange 插件，
// 消息头携带 x-delay 实现定时投递
const (
	DelayedExchange = "scheduler.delayed"

	QueueMedReminder   = "care.med_reminder"
	QueueMissedSweep   = "care.missed_sweep"
	QueueAlertDispatch = "care.alert_dispatch"
	QueueReportJob     = "care.report_job"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()

		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			return
		}

		connErr = declareTopology()
	})

	return connErr
}

// declareTopology 声明交换机和队列，幂等
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open setup channel: %w", err)
	}
	defer ch.Close()

	// 延迟交换机，类型由插件提供
	if err := ch.ExchangeDeclare(
		DelayedExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("failed to declare delayed exchange: %w", err)
	}

	queues := []string{
		QueueMedReminder,
		QueueMissedSweep,
		QueueAlertDispatch,
		QueueReportJob,
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
		// routing key 与队列同名
		if err := ch.QueueBind(q, q, DelayedExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q, err)
		}
	}

	return nil
}

// Connection 返回底层连接，消费者据此开各自的 channel
func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
