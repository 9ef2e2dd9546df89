package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
	"github.com/kilianp07/taxigrad/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker" yaml:"broker"`
	ClientID     string          `json:"client_id" yaml:"client_id"`
	Username     string          `json:"username" yaml:"username"`
	Password     string          `json:"password" yaml:"password"`
	TopicPrefix  string          `json:"topic_prefix" yaml:"topic_prefix"`
	RequestTopic string          `json:"request_topic" yaml:"request_topic"`
	UseTLS       bool            `json:"use_tls" yaml:"use_tls"`
	ClientCert   string          `json:"client_cert" yaml:"client_cert"`
	ClientKey    string          `json:"client_key" yaml:"client_key"`
	CABundle     string          `json:"ca_bundle" yaml:"ca_bundle"`
	AuthMethod   string          `json:"auth_method" yaml:"auth_method"`
	QoS          map[string]byte `json:"qos" yaml:"qos"`
	LWTTopic     string          `json:"lwt_topic" yaml:"lwt_topic"`
	LWTPayload   string          `json:"lwt_payload" yaml:"lwt_payload"`
	LWTQoS       byte            `json:"lwt_qos" yaml:"lwt_qos"`
	LWTRetain    bool            `json:"lwt_retain" yaml:"lwt_retain"`
	MaxRetries   int             `json:"max_retries" yaml:"max_retries"`
	BackoffMS    int             `json:"backoff_ms" yaml:"backoff_ms"`
	TLSConfig    *tls.Config     `json:"-" yaml:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes dispatch messages and receives ride requests using
// Eclipse Paho.
type PahoClient struct {
	cli          pahoClient
	requestTopic string
	qos          map[string]byte

	mu         sync.Mutex
	handlers   []func(coremqtt.CustomerRequest)
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the request
// topic when one is configured.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_client")
	pc := &PahoClient{
		requestTopic: cfg.RequestTopic,
		logger:       logger,
		qos:          cfg.QoS,
		maxRetries:   cfg.MaxRetries,
		backoff:      time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if pc.maxRetries <= 0 {
		pc.maxRetries = 3
	}
	if pc.backoff <= 0 {
		pc.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		logger.Infof("MQTT connected")
		if pc.requestTopic == "" {
			return
		}
		if token := c.Subscribe(pc.requestTopic, pc.qosFor("request"), pc.onRequest); token.Wait() && token.Error() != nil {
			logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

// OnRequest registers a handler for incoming ride requests.
func (p *PahoClient) OnRequest(h func(coremqtt.CustomerRequest)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, h)
	p.mu.Unlock()
}

func (p *PahoClient) onRequest(_ paho.Client, msg paho.Message) {
	req, err := DecodeRequest(msg.Payload())
	if err != nil {
		p.logger.Errorf("failed to decode request: %v", err)
		return
	}
	p.mu.Lock()
	hs := append([]func(coremqtt.CustomerRequest){}, p.handlers...)
	p.mu.Unlock()
	p.logger.Infof("received request %s", req.ID)
	for _, h := range hs {
		h(req)
	}
}

// DecodeRequest parses a JSON ride request. A missing id is generated.
func DecodeRequest(payload []byte) (coremqtt.CustomerRequest, error) {
	var req coremqtt.CustomerRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("%w: %v", coremqtt.ErrBadRequest, err)
	}
	if req.Pickup == req.Dropoff {
		return req, fmt.Errorf("%w: pickup equals dropoff", coremqtt.ErrBadRequest)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req, nil
}

// Publish sends msg on topic with retries and exponential backoff.
func (p *PahoClient) Publish(topic string, msg coremqtt.Message) (string, error) {
	if p.cli == nil || !p.cli.IsConnected() {
		return "", coremqtt.ErrNotConnected
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	qos := p.qosFor("event")
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("sent %s %s to %s", msg.Type, msg.MessageID, topic)
			break
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		return "", publishErr
	}
	return msg.MessageID, nil
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
