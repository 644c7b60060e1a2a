package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d server database DSN
//	-local-db client SQLite database path
//	-base-url sync server endpoint used by the engine
//	-client-id stable per-installation identifier
//	-token signed installation token
//	-c/-config json file path with configs
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-max-retries replay attempt cap per queued operation
//	-backoff-base first retry backoff delay
//	-backoff-ceiling retry backoff cap
//	-pull-interval periodic pull cadence
//	-push-batch-size operations per push call
//	-pull-page-size server changes per pull page
//	-offline-first queue every mutation unconditionally
//	-token-sign-key installation token signing key
//	-token-issuer installation token issuer name
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var localDBPath string
	var baseURL string
	var clientID string
	var token string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var maxRetries int
	var backoffBase time.Duration
	var backoffCeiling time.Duration
	var pullInterval time.Duration
	var pushBatchSize int
	var pullPageSize int
	var offlineFirst bool
	var tokenSignKey string
	var tokenIssuer string

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Server database DSN")
	flag.StringVar(&localDBPath, "local-db", "", "Client SQLite database path")
	flag.StringVar(&baseURL, "base-url", "", "Sync server endpoint")
	flag.StringVar(&clientID, "client-id", "", "Per-installation client ID")
	flag.StringVar(&token, "token", "", "Installation token")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.IntVar(&maxRetries, "max-retries", 0, "Replay attempt cap per queued operation")
	flag.DurationVar(&backoffBase, "backoff-base", 0, "First retry backoff delay")
	flag.DurationVar(&backoffCeiling, "backoff-ceiling", 0, "Retry backoff cap")
	flag.DurationVar(&pullInterval, "pull-interval", 0, "Periodic pull cadence")
	flag.IntVar(&pushBatchSize, "push-batch-size", 0, "Operations per push call")
	flag.IntVar(&pullPageSize, "pull-page-size", 0, "Server changes per pull page")
	flag.BoolVar(&offlineFirst, "offline-first", false, "Queue every mutation unconditionally")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Installation token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Installation token issuer")

	flag.Parse()

	return &StructuredConfig{
		Engine: Engine{
			ClientID:       clientID,
			BaseURL:        baseURL,
			Token:          token,
			RequestTimeout: requestTimeout,
			MaxRetries:     maxRetries,
			BackoffBase:    backoffBase,
			BackoffCeiling: backoffCeiling,
			PullInterval:   pullInterval,
			PushBatchSize:  pushBatchSize,
			PullPageSize:   pullPageSize,
			OfflineFirst:   offlineFirst,
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
			TokenSignKey:   tokenSignKey,
			TokenIssuer:    tokenIssuer,
		},
		Storage: Storage{
			DB:    DB{DSN: databaseDSN},
			Local: Local{Path: localDBPath},
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is
// "localhost", and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
