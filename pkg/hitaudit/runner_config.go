package hitaudit

import "time"

type Config struct {
	Brokers []string
	Topic   string
	GroupID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
}

func DefaultConfig(brokers []string, topic, groupID string) Config {
	if topic == "" {
		topic = "hit-events"
	}
	if groupID == "" {
		groupID = "hit-auditor"
	}
	return Config{
		Brokers:          brokers,
		Topic:            topic,
		GroupID:          groupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
	}
}
