package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/mqtt"
)

// commandTimeout bounds a single action run from MQTT.
const commandTimeout = 30 * time.Second

// commandQoS is used for the subscription and the acknowledgments.
const commandQoS = 1

// MQTTClient is the subset of the MQTT client the router needs.
// Satisfied by *mqtt.Client.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// CommandRouter runs action cards requested on graylogic/command/gather/{action}
// and acknowledges each on graylogic/ack/gather/{action}.
type CommandRouter struct {
	registry *Registry
	mqtt     MQTTClient
	logger   Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewCommandRouter creates a router for registry. Call Start to subscribe.
func NewCommandRouter(registry *Registry, client MQTTClient, logger Logger) *CommandRouter {
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandRouter{
		registry: registry,
		mqtt:     client,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the command topic.
func (c *CommandRouter) Start() error {
	if c.mqtt == nil {
		return ErrMQTTUnavailable
	}
	if err := c.mqtt.Subscribe(gather.CommandSubscribeTopic(), commandQoS, c.handleMessage); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	c.logger.Info("listening for commands", "topic", gather.CommandSubscribeTopic())
	return nil
}

// Stop unsubscribes, cancels running actions and waits for them.
// Safe to call multiple times.
func (c *CommandRouter) Stop() {
	c.once.Do(func() {
		if c.mqtt != nil {
			if err := c.mqtt.Unsubscribe(gather.CommandSubscribeTopic()); err != nil {
				c.logger.Warn("unsubscribing from commands", "error", err)
			}
		}
		c.cancel()
		c.wg.Wait()
	})
}

// handleMessage decodes a command and runs it off the MQTT callback goroutine,
// since connecting to the space can take as long as the handshake.
func (c *CommandRouter) handleMessage(topic string, payload []byte) error {
	action, ok := gather.ActionFromTopic(topic)
	if !ok {
		return fmt.Errorf("%w: topic %s", ErrInvalidCommand, topic)
	}

	var cmd gather.CommandMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.publishAck(gather.NewAckMessage("", action, fmt.Errorf("%w: %w", ErrInvalidCommand, err)))
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	c.logger.Info("received command", "command_id", cmd.ID, "action", action, "source", cmd.Source)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.execute(action, cmd)
	}()
	return nil
}

func (c *CommandRouter) execute(action string, cmd gather.CommandMessage) {
	ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
	defer cancel()

	err := c.registry.Run(ctx, action, cmd.Parameters)
	if err != nil {
		c.logger.Error("command failed", "command_id", cmd.ID, "action", action, "error", err)
	}
	c.publishAck(gather.NewAckMessage(cmd.ID, action, err))
}

func (c *CommandRouter) publishAck(ack gather.AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		c.logger.Error("encoding ack", "error", err)
		return
	}
	if err := c.mqtt.Publish(gather.AckTopic(ack.Action), payload, commandQoS, false); err != nil {
		c.logger.Error("publishing ack", "command_id", ack.CommandID, "error", err)
	}
}
