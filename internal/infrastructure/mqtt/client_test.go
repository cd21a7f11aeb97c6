package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/equinox-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "equinox-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Option Building Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers count = %d, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://127.0.0.1:1883")
	}
	if opts.ClientID != "equinox-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "equinox-test")
	}
	if opts.Username != "" {
		t.Errorf("Username = %q, want empty (no auth configured)", opts.Username)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].String(); got != "ssl://127.0.0.1:8883" {
		t.Errorf("broker URL = %q, want %q", got, "ssl://127.0.0.1:8883")
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig should be set when TLS is enabled")
	}
}

func TestBuildClientOptions_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "observer"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if opts.Username != "observer" {
		t.Errorf("Username = %q, want %q", opts.Username, "observer")
	}
	if opts.Password != "secret" {
		t.Errorf("Password = %q, want %q", opts.Password, "secret")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	configureLWT(opts, cfg.Broker.ClientID)

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "equinox/system/status" {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, "equinox/system/status")
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var payload map[string]any
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("LWT payload is not valid JSON: %v", err)
	}
	if payload["status"] != "offline" {
		t.Errorf("LWT status = %v, want offline", payload["status"])
	}
	if payload["client_id"] != "equinox-test" {
		t.Errorf("LWT client_id = %v, want equinox-test", payload["client_id"])
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline map[string]any

	if err := json.Unmarshal([]byte(buildOnlinePayload("equinox-core")), &online); err != nil {
		t.Fatalf("online payload is not valid JSON: %v", err)
	}
	if online["status"] != "online" || online["client_id"] != "equinox-core" {
		t.Errorf("online payload = %v", online)
	}

	if err := json.Unmarshal([]byte(buildOfflinePayload("equinox-core")), &offline); err != nil {
		t.Fatalf("offline payload is not valid JSON: %v", err)
	}
	if offline["status"] != "offline" || offline["reason"] != "graceful_shutdown" {
		t.Errorf("offline payload = %v", offline)
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{cfg: testConfig()}

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{cfg: testConfig()}

	err := client.Publish("test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	client := &Client{cfg: testConfig()}

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("test/topic", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := &Client{cfg: testConfig()}

	err := client.Publish("test/topic", []byte("test"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishStringDelegates(t *testing.T) {
	client := &Client{cfg: testConfig()}

	err := client.PublishString("", "test", 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("PublishString() error = %v, want ErrInvalidTopic", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Callback Tests
// =============================================================================

func TestOnDisconnectCallback(t *testing.T) {
	client := &Client{}

	var got error
	client.SetOnDisconnect(func(err error) {
		got = err
	})

	cause := errors.New("broker gone")
	client.handleDisconnect(cause)

	if got != cause {
		t.Errorf("disconnect callback received %v, want %v", got, cause)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after handleDisconnect")
	}
}

func TestSetLogger(t *testing.T) {
	client := &Client{}

	logger := &mockLogger{}
	client.SetLogger(logger)

	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "PropertyState",
			builder: func() string {
				return Topics{}.PropertyState("Camera One", "CCD_EXPOSURE")
			},
			expected: "equinox/property/Camera One/CCD_EXPOSURE",
		},
		{
			name: "PropertyState sanitises reserved characters",
			builder: func() string {
				return Topics{}.PropertyState("CCD Simulator #cam-1", "CCD_EXPOSURE")
			},
			expected: "equinox/property/CCD Simulator -cam-1/CCD_EXPOSURE",
		},
		{
			name: "DeviceMessage",
			builder: func() string {
				return Topics{}.DeviceMessage("Camera One")
			},
			expected: "equinox/message/Camera One",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "equinox/system/status",
		},
		{
			name: "AllProperties",
			builder: func() string {
				return Topics{}.AllProperties()
			},
			expected: "equinox/property/#",
		},
		{
			name: "DeviceProperties",
			builder: func() string {
				return Topics{}.DeviceProperties("Camera One")
			},
			expected: "equinox/property/Camera One/+",
		},
		{
			name: "AllMessages",
			builder: func() string {
				return Topics{}.AllMessages()
			},
			expected: "equinox/message/+",
		},
		{
			name: "AllTopics",
			builder: func() string {
				return Topics{}.AllTopics()
			},
			expected: "equinox/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestSanitiseSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"a/b", "a-b"},
		{"a+b", "a-b"},
		{"a#b", "a-b"},
		{"CCD Simulator #cam-1", "CCD Simulator -cam-1"},
	}

	for _, tt := range tests {
		if got := sanitiseSegment(tt.in); got != tt.want {
			t.Errorf("sanitiseSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitisedTopicsAreValid(t *testing.T) {
	// A publish topic must never contain wildcard characters.
	topics := []string{
		Topics{}.PropertyState("CCD Simulator #cam-1", "CCD_EXPOSURE"),
		Topics{}.DeviceMessage("weird/+/name"),
	}

	for _, topic := range topics {
		if strings.ContainsAny(topic[len(TopicPrefix):], "#+") {
			t.Errorf("topic %q contains wildcard characters after sanitisation", topic)
		}
	}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
