package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	KafkaFetchBackoff = time.Second
)

const (
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultGatewayTimeout = 3 * time.Second
	DefaultMaxBodyBytes   = 10 << 20
	EmptyFallbackPath     = "/empty-fallback"
)

const (
	BrokerKafka  = "kafka"
	BrokerNATS   = "nats"
	BrokerMemory = "memory"
)

const (
	DefaultExchange         = "inabottle-exchange"
	DefaultKafkaTopicPrefix = "inabottle."
	DefaultDLQSuffix        = ".dlq"
	DefaultNATSStream       = "INABOTTLE"
	DefaultNATSAckWait      = 30 * time.Second
	DefaultNATSDLQPrefix    = "dlq."
)

const (
	RoutingKeyDirectMessageSave = "direct.message.save"
	RoutingKeyPointsAdd         = "points.add"
)

const (
	QueueDirectMessage = "direct-message-queue"
	QueuePoints        = "points-queue"
	QueueUser          = "user-queue"
)

const (
	ServiceGateway       = "gateway"
	ServiceDirectMessage = "direct-message-service"
	ServiceHub           = "hub-service"
	ServiceTreasureHunt  = "treasure-hunt-service"
	ServicePoint         = "point-service"
	ServiceUser          = "user-service"
)

const (
	DefaultMongoDBName = "inabottle"
)

const (
	CollectionDirectMessages = "direct_messages"
	CollectionHubs           = "hubs"
	CollectionTreasureHunts  = "treasure_hunts"
	CollectionPointsHistory  = "points_history"
	CollectionUsers          = "users"
)

const (
	LockBackendLocal      = "local"
	LockBackendRedis      = "redis"
	CacheKeyPrefixHubLock = "hub:lock:"
)

const (
	SourceTypeTreasure = "Treasure"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// MaxAppliedEvents bounds the per-user list of credited points events.
	MaxAppliedEvents = 500
)
