package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	DBUrl        string
	JSONEndpoint string
	CSVEndpoint  string
	Products     string
	Debounce     time.Duration
	HTTPTimeout  time.Duration
	FlushEvery   time.Duration
	Debug        bool
}

func ParseFlags() (cfg Config, err error) {
	// Webhook URLs carry signed query strings, so they usually come from
	// a .env next to the binary rather than the command line.
	_ = godotenv.Load()

	var host string
	flag.StringVar(&host, "host", "127.0.0.1", "listen host name (default 127.0.0.1)")
	var port uint
	flag.UintVar(&port, "port", 8321, "listen port number (default 8321)")
	flag.StringVar(&cfg.DBUrl, "db-url", "laso.sqlite", "path to SQLite3 DB file, empty for in-memory only")
	flag.StringVar(&cfg.JSONEndpoint, "json-endpoint", os.Getenv("LASO_JSON_ENDPOINT"), "webhook URL accepting the JSON payload")
	flag.StringVar(&cfg.CSVEndpoint, "csv-endpoint", os.Getenv("LASO_CSV_ENDPOINT"), "webhook URL accepting the CSV payload")
	flag.StringVar(&cfg.Products, "products", os.Getenv("LASO_PRODUCTS"), "path to the product catalog JSON file")
	var debounce uint
	flag.UintVar(&debounce, "debounce", 400, "draft autosave debounce in milliseconds (default 400)")
	var timeout uint
	flag.UintVar(&timeout, "http-timeout", 30, "webhook request timeout in seconds (default 30)")
	flag.DurationVar(&cfg.FlushEvery, "flush-every", 2*time.Minute, "periodic queue flush interval, 0 to disable")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.Debounce = time.Duration(debounce) * time.Millisecond
	cfg.HTTPTimeout = time.Duration(timeout) * time.Second

	if cfg.JSONEndpoint == "" {
		err = errors.New("missing parameter -json-endpoint")
	} else if cfg.CSVEndpoint == "" {
		err = errors.New("missing parameter -csv-endpoint")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
