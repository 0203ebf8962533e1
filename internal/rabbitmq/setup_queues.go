package rabbitmq

// Ключи маршрутизации событий.
const (
	RoutingKeySlotRolled        = "slot.rolled"
	RoutingKeyRolloverCompleted = "rollover.completed"
)

// Очереди, на которые подписываются потребители.
const (
	QueueSlotRolled = "slots.rolled"
	QueueRollover   = "slots.rollover"
)

// QueueConfig описывает очередь и ключ, которым она привязана к Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetSlotQueues возвращает очереди событий смены слотов.
func GetSlotQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueSlotRolled, RoutingKey: RoutingKeySlotRolled},
		{QueueName: QueueRollover, RoutingKey: RoutingKeyRolloverCompleted},
	}
}
