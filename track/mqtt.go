package track

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MessageHandler is called when a source payload arrives on a subscribed
// topic. payload is nil when decoding failed; err carries the decode error.
type MessageHandler func(sourceID string, payload *SourcePayload, err error)

// IngestClient manages the MQTT connection and per-source subscriptions for
// push-style sources (sources configured with a topic instead of a URL).
type IngestClient struct {
	client         mqtt.Client
	config         *Config
	messageHandler MessageHandler
	isConnected    bool
	mu             sync.RWMutex
}

var (
	globalClient *IngestClient
	clientMu     sync.Mutex
)

// InitMQTT initializes the global MQTT ingest client with the provided
// configuration. If no broker is configured (config and MQTT_BROKER env var
// both empty), MQTT is disabled and this returns nil.
func InitMQTT(config *Config, handler MessageHandler) (*IngestClient, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil && config.MQTT.Broker != "" {
		broker = config.MQTT.Broker
	}

	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}

	if config == nil || len(config.Sources) == 0 {
		return nil, fmt.Errorf("MQTT enabled but no source configuration provided")
	}

	client := &IngestClient{
		config:         config,
		messageHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config.MQTT.ClientID != "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = "skyfuse"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config.MQTT.Username != "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config.MQTT.Password != "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	// Connection settings
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // Preserve subscriptions on reconnect
	opts.SetOrderMatters(false) // Allow concurrent processing

	// Callbacks
	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	// Connect asynchronously with retry
	go client.connectWithRetry()

	globalClient = client
	return client, nil
}

// GetIngestClient returns the global MQTT ingest client instance.
func GetIngestClient() *IngestClient {
	clientMu.Lock()
	defer clientMu.Unlock()
	return globalClient
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff.
func (c *IngestClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to every topic-configured source once the connection
// is established.
func (c *IngestClient) onConnect(client mqtt.Client) {
	log.Println("MQTT connected, subscribing to source topics...")
	c.setConnected(true)

	for _, source := range c.config.Sources {
		if source.Topic == "" {
			continue
		}

		log.Printf("Subscribing to %s for source %s", source.Topic, source.ID)
		token := client.Subscribe(source.Topic, 0, c.createMessageHandler(source.ID))

		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("Error subscribing to %s: %v", source.Topic, token.Error())
		} else {
			log.Printf("Successfully subscribed to %s", source.Topic)
		}
	}
}

// onConnectionLost is called when the MQTT connection is lost.
// Auto-reconnect is enabled, so this is typically a transient event.
func (c *IngestClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

// onReconnecting is called when the client attempts to reconnect.
func (c *IngestClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// createMessageHandler creates a handler function for a specific source's topic.
func (c *IngestClient) createMessageHandler(sourceID string) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		log.Printf("Received aircraft payload for %s (topic: %s, size: %d bytes)",
			sourceID, msg.Topic(), len(payload))

		decoded, err := DecodePayload(payload, time.Now())
		if err != nil {
			log.Printf("Error decoding payload for %s: %v", sourceID, err)
			if c.messageHandler != nil {
				c.messageHandler(sourceID, nil, err)
			}
			return
		}

		if c.messageHandler != nil {
			c.messageHandler(sourceID, decoded, nil)
		}
	}
}

// IsConnected returns true if the MQTT client is connected.
func (c *IngestClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// setConnected updates the connection status.
func (c *IngestClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection.
func (c *IngestClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250) // 250ms quiesce time
		c.setConnected(false)
	}
}

// GetSourceByTopic returns the source ID for a given topic.
func (c *IngestClient) GetSourceByTopic(topic string) (string, bool) {
	for _, source := range c.config.Sources {
		if source.Topic == topic {
			return source.ID, true
		}
	}
	return "", false
}

// GetClient returns the underlying MQTT client for publishing.
func (c *IngestClient) GetClient() mqtt.Client {
	return c.client
}

// newIngestClientWithMock creates an IngestClient with a provided mqtt.Client.
// This is used for testing with mock clients.
func newIngestClientWithMock(client mqtt.Client, config *Config, handler MessageHandler) *IngestClient {
	return &IngestClient{
		client:         client,
		config:         config,
		messageHandler: handler,
	}
}
