package config

import "time"

// DefaultConfig returns the default configuration. The HTTP port follows
// the historical service default of 5000.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        5000,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		Agent: AgentConfig{
			DefaultModel:    "gpt-4o-mini",
			MaxSteps:        25,
			ActionDelay:     500 * time.Millisecond,
			Timeout:         5 * time.Minute,
			ConversationDir: "./conversations",
		},
		Browser: BrowserConfig{
			Headless:          true,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
		Registry: RegistryConfig{
			Backend:  "memory",
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Pool: PoolConfig{
			MaxWorkers:  8,
			QueueSize:   32,
			IdleTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "browser-use-api",
			SampleRate:   1.0,
		},
	}
}
