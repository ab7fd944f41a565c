package server

import "github.com/alexflint/go-arg"

type Config struct {
	Address   string   `arg:"--address" env:"RESPD_LISTEN_ADDRESS" help:"address to listen on" default:"localhost:6379"`
	MaxSize   int64    `arg:"--proto-max-bulk-len" env:"RESPD_PROTO_MAX_BULK_LEN" help:"max length of bulk string" default:"0"`
	ReplicaOf []string `arg:"--replicaof" help:"start as replica of the given master host and port (master-side behavior only; replica client is out of scope)"`
}

func (c *Config) getMaxSize() int64 {
	if c.MaxSize == 0 {
		return 512 * 1000000
	}
	return c.MaxSize
}

func (c *Config) Parse() error {
	if c == nil {
		c = &Config{}
	}

	err := arg.Parse(c)

	return err
}
