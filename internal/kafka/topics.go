package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-library/internal/logger"
)

// EnsureTopicsExist creates the event topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string, log *logger.Logger) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		topicConfigs := []kafka.TopicConfig{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		}

		err = controllerConn.CreateTopics(topicConfigs...)
		if err != nil {
			if err.Error() == "kafka server: topic already exists" {
				log.Debug("KAFKA", fmt.Sprintf("topic %s already exists", topic))
				continue
			}
			log.Error("KAFKA", fmt.Sprintf("error creating topic %s: %v", topic, err))
			// Keep going; a missing topic surfaces again on first publish.
		} else {
			log.Info("KAFKA", fmt.Sprintf("created topic %s", topic))
		}
	}

	// Give the broker a moment to settle the new topics.
	time.Sleep(1 * time.Second)
	return nil
}
