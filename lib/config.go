package lib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
)

/* This file implements logic for 'user controlled' global configurations of each module of the node */

const (
	// GLOBAL CONSTANTS
	DefaultChainId = "dex-local" // the default chain id used by developer setups

	// FILE NAMES in the 'data directory'
	ConfigFilePath  = "config.json"  // the file path for the node configuration
	GenesisFilePath = "genesis.json" // the file path for the initial book of the dex
)

// Config is the structure of the user configuration options for a dex node
type Config struct {
	MainConfig    // main options spanning over all modules
	RPCConfig     // rpc API options
	StoreConfig   // persistence options
	DexConfig     // protocol constants of the trading engine
	MetricsConfig // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:    DefaultMainConfig(),
		RPCConfig:     DefaultRPCConfig(),
		StoreConfig:   DefaultStoreConfig(),
		DexConfig:     DefaultDexConfig(),
		MetricsConfig: DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
	ChainId  string `json:"chainId"`  // the identifier of the chain, echoed in every query response
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel: "info",
		ChainId:  DefaultChainId,
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch level := strings.ToLower(m.LogLevel); {
	case strings.Contains(level, "deb"):
		return DebugLevel
	case strings.Contains(level, "inf"):
		return InfoLevel
	case strings.Contains(level, "war"):
		return WarnLevel
	case strings.Contains(level, "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// RPC CONFIG BELOW

type RPCConfig struct {
	RPCPort         string `json:"rpcPort"`         // the port where the query rpc server is hosted
	AdminPort       string `json:"adminPort"`       // the port where the admin rpc server is hosted
	RPCUrl          string `json:"rpcURL"`          // the url where the rpc server is hosted
	AdminRPCUrl     string `json:"adminRPCUrl"`     // the url where the admin rpc server is hosted
	TimeoutS        int    `json:"timeoutS"`        // the rpc request timeout in seconds
	MaxRequestBytes string `json:"maxRequestBytes"` // the maximum size of a request body (i.e. 1MB)
	MaxSubscribers  int    `json:"maxSubscribers"`  // the maximum number of websocket execution subscribers
}

// DefaultRPCConfig() sets rpc url to localhost and sets the query and admin ports
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:         "50002",
		AdminPort:       "50003",
		RPCUrl:          "http://localhost:50002",
		AdminRPCUrl:     "http://localhost:50003",
		TimeoutS:        3,
		MaxRequestBytes: "4MB",
		MaxSubscribers:  256,
	}
}

// RequestLimit() parses the human readable body limit, falling back to a single megabyte
func (r *RPCConfig) RequestLimit() int64 {
	size, err := units.ParseStrictBytes(r.MaxRequestBytes)
	if err != nil || size <= 0 {
		return int64(units.MB)
	}
	return size
}

// STORE CONFIG BELOW

// StoreConfig is user configurations for the key value database
type StoreConfig struct {
	DataDirPath     string `json:"dataDirPath"`     // path of the designated folder where the application stores its data
	DBName          string `json:"dbName"`          // name of the database
	InMemory        bool   `json:"inMemory"`        // non-disk database, only for testing
	BlockCacheSize  string `json:"blockCacheSize"`  // size of the block cache (i.e. 256MB)
	IndexCacheSize  string `json:"indexCacheSize"`  // size of the index cache (i.e. 64MB)
	ValueLogFileCap string `json:"valueLogFileCap"` // maximum size of a single value log file (i.e. 512MB)
}

// DefaultDataDirPath() is $USERHOME/.dex
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".dex")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath:     DefaultDataDirPath(),
		DBName:          "dex",
		InMemory:        false,
		BlockCacheSize:  "256MB",
		IndexCacheSize:  "64MB",
		ValueLogFileCap: "512MB",
	}
}

// Sizes() parses the human readable cache sizes into bytes
func (s *StoreConfig) Sizes() (blockCache, indexCache, valueLogFile int64) {
	parse := func(v string, fallback units.Base2Bytes) int64 {
		size, err := units.ParseBase2Bytes(v)
		if err != nil || size <= 0 {
			return int64(fallback)
		}
		return int64(size)
	}
	return parse(s.BlockCacheSize, 256*units.MiB), parse(s.IndexCacheSize, 64*units.MiB), parse(s.ValueLogFileCap, 512*units.MiB)
}

// DEX CONFIG BELOW

// DexConfig holds the protocol constants of the trading engine
// NOTE: every validator must run with identical values, they are not a local preference
type DexConfig struct {
	MaxHops           int        `json:"maxHops"`           // the maximum number of pairs a route may cross
	MaxExecutionSteps int        `json:"maxExecutionSteps"` // the maximum number of fill steps per routed direction
	RoutingCandidates []HexBytes `json:"routingCandidates"` // the assets a route may use as intermediate hops
	ArbitrageEnabled  bool       `json:"arbitrageEnabled"`  // run the arbitrage executor at the end of every block
	EpochLength       uint64     `json:"epochLength"`       // the number of blocks in an epoch
}

// DefaultDexConfig() returns the protocol constants used by developer setups
func DefaultDexConfig() DexConfig {
	return DexConfig{
		MaxHops:           4,
		MaxExecutionSteps: 64,
		RoutingCandidates: []HexBytes{},
		ArbitrageEnabled:  true,
		EpochLength:       719,
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	MetricsEnabled    bool   `json:"metricsEnabled"`    // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MetricsEnabled:    true,
		PrometheusAddress: "0.0.0.0:9090",
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	bz, err := MarshalJSONIndent(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, bz, os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file, using defaults for any missing fields
func NewConfigFromFile(filePath string) (Config, error) {
	c := DefaultConfig()
	if err := NewJSONFromFile(&c, filepath.Dir(filePath), filepath.Base(filePath)); err != nil {
		return Config{}, err
	}
	return c, nil
}
