package config

import (
	"crypto/tls"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const DefaultStoragePrefix = "ledger"

type RedisOptions struct {
	// The network type, either tcp or unix.
	// Default is tcp.
	Network string `json:"network"`

	Host string `json:"host"`
	Port int    `json:"port"`

	Password string `json:"password"`
	DB       int    `json:"db"`

	// Prefix namespaces every key written by the archive.
	Prefix string `json:"prefix"`

	TLS *TLSClientOptions `json:"tls"`
}

func (ro *RedisOptions) Addr() string {
	return ro.Host + ":" + strconv.Itoa(ro.Port)
}

func (ro *RedisOptions) ToRedisOptions() (*redis.Options, error) {
	var tlsConfig *tls.Config

	if ro.TLS != nil {
		var err error
		tlsConfig, err = ro.TLS.ToTLSConfig()
		if err != nil {
			return nil, err
		}
	}

	return &redis.Options{
		Network:   ro.Network,
		Addr:      ro.Addr(),
		Password:  ro.Password,
		DB:        ro.DB,
		TLSConfig: tlsConfig,
	}, nil
}
