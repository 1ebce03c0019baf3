package config

// Config 配置主体
type Config struct {
	Server               ServerConfig       `mapstructure:"server"`
	DB                   DBConfig           `mapstructure:"database"`
	Redis                RedisConfig        `mapstructure:"redis"`
	Mongo                MongoConfig        `mapstructure:"mongo"`
	MinIO                MinIOConfig        `mapstructure:"minio"`
	Elastic              ElasticConfig      `mapstructure:"elastic"`
	Kafka                KafkaConfig        `mapstructure:"kafka"`
	KafkaMessageConsumer KafkaTopicConsumer `mapstructure:"kafka_message_consumer"`
	Logstash             LogstashConfig     `mapstructure:"logstash"`
	IM                   IMConfig           `mapstructure:"im"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	InternalEndpoint string `mapstructure:"internal_endpoint"`
	ExternalEndpoint string `mapstructure:"external_endpoint"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	MainBucket       string `mapstructure:"main_bucket"`
	InternalUseSSL   bool   `mapstructure:"internal_use_ssl"`
}

// ElasticConfig Elastic配置
type ElasticConfig struct {
	Address      string `mapstructure:"address"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	MessageIndex string `mapstructure:"message_index"`
}

type KafkaConfig struct {
	Brokers      []string       `mapstructure:"brokers"`
	MessageTopic string         `mapstructure:"message_topic"`
	Sasl         SaslConfig     `mapstructure:"sasl"`
	Consumer     ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaTopicConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// IMConfig 消息模块配置
type IMConfig struct {
	// MessagesPerMinute 每用户每分钟可发送消息数
	MessagesPerMinute int `mapstructure:"messages_per_minute"`
	// ReactionsPerMinute 每用户每分钟可发送表情回应数
	ReactionsPerMinute int `mapstructure:"reactions_per_minute"`
	// TypingTTL 输入状态的存活秒数
	TypingTTL int `mapstructure:"typing_ttl"`
	// CacheTTL 会话缓存的存活秒数
	CacheTTL int `mapstructure:"cache_ttl"`
	// DefaultPageSize 默认分页大小
	DefaultPageSize int `mapstructure:"default_page_size"`
	// MaxPageSize 最大分页大小
	MaxPageSize int `mapstructure:"max_page_size"`
}
