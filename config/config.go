package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API           API           `json:"api" yaml:"api" mapstructure:"api"`
	Auth          Auth          `json:"auth" yaml:"auth" mapstructure:"auth"`
	Server        Server        `json:"server" yaml:"server" mapstructure:"server"`
	Notifications Notifications `json:"notifications" yaml:"notifications" mapstructure:"notifications"`
	Breaker       Breaker       `json:"breaker" yaml:"breaker" mapstructure:"breaker"`
}

// API locates the remote collection API
type API struct {
	Scheme       string        `json:"scheme" yaml:"scheme" mapstructure:"scheme"`
	Host         string        `json:"host" yaml:"host" mapstructure:"host"`
	BasePath     string        `json:"basePath" yaml:"basePath" mapstructure:"basePath"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MaxRetries   int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"maxRetries"`
	BaseBackoff  time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
	RemoteFilter bool          `json:"remoteFilter" yaml:"remoteFilter" mapstructure:"remoteFilter"`
}

// URL joins scheme, host and base path
func (a API) URL() (string, error) {
	if a.Host == "" {
		return "", fmt.Errorf("api host is not configured")
	}

	scheme := a.Scheme
	if scheme == "" {
		scheme = "http"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   a.Host,
		Path:   "/" + strings.Trim(a.BasePath, "/"),
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

// Auth holds the credentials the CLI logs in with
type Auth struct {
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
}

type Server struct {
	Port int `json:"port" yaml:"port" mapstructure:"port"`
}

type Notifications struct {
	Duration time.Duration `json:"duration" yaml:"duration" mapstructure:"duration"`
}

// Breaker configures the circuit breakers around the filter and stats endpoints
type Breaker struct {
	MaxRequests      uint32        `json:"maxRequests" yaml:"maxRequests" mapstructure:"maxRequests"`
	Interval         time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	FailureThreshold uint32        `json:"failureThreshold" yaml:"failureThreshold" mapstructure:"failureThreshold"`
}

type ConfigUnmarshaler interface {
	ReadInConfig() error
	Unmarshal(any, ...viper.DecoderConfigOption) error
	ConfigFileUsed() string
}

// New reads a new configuration
func New(cu ConfigUnmarshaler) (Config, error) {
	var c Config

	if cu.ConfigFileUsed() != "" {
		err := cu.ReadInConfig()
		if err != nil {
			return c, err
		}
	}

	err := cu.Unmarshal(&c)
	return c, err
}
